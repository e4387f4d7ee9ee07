package seqmodel

// StubBackend returns canned output through InferFunc. Used by tests and
// when exercising the pipeline without a real model file.
type StubBackend struct {
	InferFunc func(lips, shape, pos [][]float32) ([]float32, int, int)
	loaded    bool
}

// Load marks the stub loaded; the path is ignored.
func (s *StubBackend) Load(string) bool {
	s.loaded = true
	return true
}

// Loaded reports whether Load was called.
func (s *StubBackend) Loaded() bool {
	return s.loaded
}

// Infer delegates to InferFunc, or reports failure when unset.
func (s *StubBackend) Infer(lips, shape, pos [][]float32) ([]float32, int, int) {
	if !s.loaded || s.InferFunc == nil {
		return nil, 0, 0
	}
	return s.InferFunc(lips, shape, pos)
}
