package fm

import "github.com/cbegin/trackersynth/internal/song"

// Algorithm routes operator outputs into other operators' phases. Operator
// numbers in ModulatedBy are 1-based, as they are shown to users.
type Algorithm struct {
	Name              string
	CarrierCount      int
	AssociatedCarrier [song.OperatorCount]int
	ModulatedBy       [song.OperatorCount][]int
}

// Algorithms lists every operator routing. Carriers are always the lowest
// numbered operators.
var Algorithms = [...]Algorithm{
	{"1←(2 3 4)", 1, [4]int{1, 1, 1, 1}, [4][]int{{2, 3, 4}, {}, {}, {}}},
	{"1←(2 3←4)", 1, [4]int{1, 1, 1, 1}, [4][]int{{2, 3}, {}, {4}, {}}},
	{"1←2←(3 4)", 1, [4]int{1, 1, 1, 1}, [4][]int{{2}, {3, 4}, {}, {}}},
	{"1←(2 3)←4", 1, [4]int{1, 1, 1, 1}, [4][]int{{2, 3}, {4}, {4}, {}}},
	{"1←2←3←4", 1, [4]int{1, 1, 1, 1}, [4][]int{{2}, {3}, {4}, {}}},
	{"1←3 2←4", 2, [4]int{1, 2, 1, 2}, [4][]int{{3}, {4}, {}, {}}},
	{"1 2←(3 4)", 2, [4]int{1, 2, 2, 2}, [4][]int{{}, {3, 4}, {}, {}}},
	{"1 2←3←4", 2, [4]int{1, 2, 2, 2}, [4][]int{{}, {3}, {4}, {}}},
	{"(1 2)←3←4", 2, [4]int{1, 2, 2, 2}, [4][]int{{3}, {3}, {4}, {}}},
	{"(1 2)←(3 4)", 2, [4]int{1, 2, 2, 2}, [4][]int{{3, 4}, {3, 4}, {}, {}}},
	{"1 2 3←4", 3, [4]int{1, 2, 3, 3}, [4][]int{{}, {}, {4}, {}}},
	{"(1 2 3)←4", 3, [4]int{1, 2, 3, 3}, [4][]int{{4}, {4}, {4}, {}}},
	{"1 2 3 4", 4, [4]int{1, 2, 3, 4}, [4][]int{{}, {}, {}, {}}},
}

// Feedback routes previous or current operator outputs back into operator
// phases, scaled by the instrument's feedback amplitude.
type Feedback struct {
	Name    string
	Indices [song.OperatorCount][]int
}

var Feedbacks = [...]Feedback{
	{"1⟲", [4][]int{{1}, {}, {}, {}}},
	{"2⟲", [4][]int{{}, {2}, {}, {}}},
	{"3⟲", [4][]int{{}, {}, {3}, {}}},
	{"4⟲", [4][]int{{}, {}, {}, {4}}},
	{"1⟲ 2⟲", [4][]int{{1}, {2}, {}, {}}},
	{"3⟲ 4⟲", [4][]int{{}, {}, {3}, {4}}},
	{"1⟲ 2⟲ 3⟲", [4][]int{{1}, {2}, {3}, {}}},
	{"2⟲ 3⟲ 4⟲", [4][]int{{}, {2}, {3}, {4}}},
	{"1⟲ 2⟲ 3⟲ 4⟲", [4][]int{{1}, {2}, {3}, {4}}},
	{"1→2", [4][]int{{}, {1}, {}, {}}},
	{"1→3", [4][]int{{}, {}, {1}, {}}},
	{"1→4", [4][]int{{}, {}, {}, {1}}},
	{"2→3", [4][]int{{}, {}, {2}, {}}},
	{"2→4", [4][]int{{}, {}, {}, {2}}},
	{"3→4", [4][]int{{}, {}, {}, {3}}},
	{"1→3 2→4", [4][]int{{}, {}, {1}, {2}}},
	{"1→4 2→3", [4][]int{{}, {}, {2}, {1}}},
	{"1→2→3→4", [4][]int{{}, {1}, {2}, {3}}},
}

// AlgorithmFor clamps index into Algorithms.
func AlgorithmFor(index int) *Algorithm {
	return &Algorithms[clampInt(index, 0, len(Algorithms)-1)]
}

// FeedbackFor clamps index into Feedbacks.
func FeedbackFor(index int) *Feedback {
	return &Feedbacks[clampInt(index, 0, len(Feedbacks)-1)]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
