package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

type rampSource struct {
	calls int
	fail  error
	done  bool
}

func (s *rampSource) Render(left, right []float32) error {
	s.calls++
	for i := range left {
		left[i] = float32(i) / 8
		right[i] = -float32(i) / 8
	}
	return s.fail
}

type finishingSource struct {
	rampSource
}

func (s *finishingSource) Finished() bool { return s.done }

func TestStreamInterleavesFloat32LE(t *testing.T) {
	st := NewStream(&rampSource{})
	buf := make([]byte, 4*bytesPerFrame+3)
	n, err := st.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 4*bytesPerFrame {
		t.Fatalf("expected %d bytes, got %d", 4*bytesPerFrame, n)
	}
	for i := 0; i < 4; i++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8+4:]))
		if want := float32(i) / 8; l != want || r != -want {
			t.Fatalf("frame %d = (%v, %v), want (%v, %v)", i, l, r, want, -want)
		}
	}
}

func TestStreamEndsOnFailure(t *testing.T) {
	src := &rampSource{fail: errors.New("boom")}
	st := NewStream(src)
	buf := make([]byte, 64)
	if n, err := st.Read(buf); err != io.EOF || n != 64 {
		t.Fatalf("expected 64 bytes and EOF, got %d, %v", n, err)
	}
	if n, err := st.Read(buf); err != io.EOF || n != 0 {
		t.Fatalf("expected EOF after failure, got %d, %v", n, err)
	}
	if src.calls != 1 {
		t.Fatalf("source rendered %d times after failing", src.calls)
	}
}

func TestStreamHonorsFinisher(t *testing.T) {
	src := &finishingSource{}
	st := NewStream(src)
	buf := make([]byte, 16)
	if _, err := st.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	src.done = true
	if _, err := st.Read(buf); err != io.EOF {
		t.Fatalf("expected EOF once finished, got %v", err)
	}
}
