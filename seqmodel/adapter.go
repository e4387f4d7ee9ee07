// Package seqmodel adapts the pretrained sequence network to the window
// processor: it splits feature windows into the model's three inputs,
// zero-pads short windows and serializes inference.
package seqmodel

import (
	"sync"

	"github.com/ieee0824/cuedspeech-go/feature"
)

// Backend evaluates the network on one padded window. Implementations
// receive three [T][d] inputs (lips, hand shape, hand position) and
// return the raw output flattened row-major with its [T', V] shape. A
// zero seqLen or vocab signals failure.
type Backend interface {
	Load(path string) bool
	Infer(lips, shape, pos [][]float32) (out []float32, seqLen, vocab int)
	Loaded() bool
}

// Adapter wraps a Backend behind a mutex so independent pipelines can
// share one loaded model; within a stream calls are already serial.
type Adapter struct {
	mu      sync.Mutex
	backend Backend
	seqLen  int
	vocab   int
}

// NewAdapter wraps a backend.
func NewAdapter(b Backend) *Adapter {
	return &Adapter{backend: b}
}

// Load loads the model file, reporting false on failure.
func (a *Adapter) Load(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return false
	}
	return a.backend.Load(path)
}

// Loaded reports whether a model is ready for inference.
func (a *Adapter) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backend != nil && a.backend.Loaded()
}

// Infer evaluates one window of features. The window is right-zero-padded
// (or truncated) to window frames when window > 0, otherwise taken as is.
// Returns the [T' x V] output row-major with its shape; an unloaded model
// yields an empty matrix.
func (a *Adapter) Infer(frames []feature.Vector, window int) ([]float32, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.backend == nil || !a.backend.Loaded() {
		return nil, 0, 0
	}
	seqLen := window
	if seqLen <= 0 {
		seqLen = len(frames)
	}
	if seqLen <= 0 {
		return nil, 0, 0
	}

	lips := make([][]float32, seqLen)
	shape := make([][]float32, seqLen)
	pos := make([][]float32, seqLen)
	var zero feature.Vector
	for t := 0; t < seqLen; t++ {
		f := &zero
		if t < len(frames) {
			f = &frames[t]
		}
		lips[t] = f.Lips[:]
		shape[t] = f.HandShape[:]
		pos[t] = f.HandPosition[:]
	}

	out, outLen, vocab := a.backend.Infer(lips, shape, pos)
	if len(out) == 0 || outLen <= 0 || vocab <= 0 {
		return nil, 0, 0
	}
	a.seqLen = outLen
	a.vocab = vocab
	return out, outLen, vocab
}

// VocabSize returns the vocabulary size reported by the last inference.
func (a *Adapter) VocabSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vocab
}

// LastSequenceLength returns the output length of the last inference.
func (a *Adapter) LastSequenceLength() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seqLen
}
