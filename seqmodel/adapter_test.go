package seqmodel

import (
	"testing"

	"github.com/ieee0824/cuedspeech-go/feature"
)

func TestAdapter_PadsToWindow(t *testing.T) {
	var gotLips, gotShape, gotPos [][]float32
	backend := &StubBackend{
		InferFunc: func(lips, shape, pos [][]float32) ([]float32, int, int) {
			gotLips, gotShape, gotPos = lips, shape, pos
			return make([]float32, len(lips)*4), len(lips), 4
		},
	}
	a := NewAdapter(backend)
	a.Load("")

	frames := make([]feature.Vector, 30)
	for i := range frames {
		frames[i].Lips[0] = float32(i) + 1
	}
	out, seqLen, vocab := a.Infer(frames, 100)
	if len(out) != 400 || seqLen != 100 || vocab != 4 {
		t.Fatalf("Infer = (%d, %d, %d), want (400, 100, 4)", len(out), seqLen, vocab)
	}
	if len(gotLips) != 100 || len(gotShape) != 100 || len(gotPos) != 100 {
		t.Fatalf("inputs = %d/%d/%d rows, want 100 each", len(gotLips), len(gotShape), len(gotPos))
	}
	if len(gotLips[0]) != feature.LipsDim || len(gotShape[0]) != feature.HandShapeDim || len(gotPos[0]) != feature.HandPositionDim {
		t.Errorf("input dims = %d/%d/%d, want 8/7/18", len(gotLips[0]), len(gotShape[0]), len(gotPos[0]))
	}
	if gotLips[29][0] != 30 {
		t.Errorf("frame 29 = %v, want 30", gotLips[29][0])
	}
	// Frames beyond the real ones are zero padding.
	for i := 30; i < 100; i++ {
		if gotLips[i][0] != 0 {
			t.Fatalf("pad frame %d = %v, want 0", i, gotLips[i][0])
		}
	}
}

func TestAdapter_TruncatesLongWindow(t *testing.T) {
	backend := &StubBackend{
		InferFunc: func(lips, shape, pos [][]float32) ([]float32, int, int) {
			return make([]float32, len(lips)*4), len(lips), 4
		},
	}
	a := NewAdapter(backend)
	a.Load("")

	frames := make([]feature.Vector, 150)
	_, seqLen, _ := a.Infer(frames, 100)
	if seqLen != 100 {
		t.Errorf("seqLen = %d, want 100 (window clamps the input)", seqLen)
	}
}

func TestAdapter_Unloaded(t *testing.T) {
	a := NewAdapter(&StubBackend{})
	out, seqLen, vocab := a.Infer(make([]feature.Vector, 10), 100)
	if out != nil || seqLen != 0 || vocab != 0 {
		t.Error("unloaded adapter should return empty output")
	}
	if a.Loaded() {
		t.Error("adapter reports loaded without Load")
	}
}

func TestAdapter_RecordsShape(t *testing.T) {
	backend := &StubBackend{
		InferFunc: func(lips, shape, pos [][]float32) ([]float32, int, int) {
			return make([]float32, 25*11), 25, 11
		},
	}
	a := NewAdapter(backend)
	a.Load("")

	a.Infer(make([]feature.Vector, 100), 100)
	if a.LastSequenceLength() != 25 {
		t.Errorf("LastSequenceLength = %d, want 25 (strided output)", a.LastSequenceLength())
	}
	if a.VocabSize() != 11 {
		t.Errorf("VocabSize = %d, want 11", a.VocabSize())
	}
}

func TestAdapter_BackendFailure(t *testing.T) {
	backend := &StubBackend{
		InferFunc: func(lips, shape, pos [][]float32) ([]float32, int, int) {
			return nil, 0, 0
		},
	}
	a := NewAdapter(backend)
	a.Load("")

	out, seqLen, vocab := a.Infer(make([]feature.Vector, 100), 100)
	if out != nil || seqLen != 0 || vocab != 0 {
		t.Error("backend failure should propagate as empty output")
	}
}
