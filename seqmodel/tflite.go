package seqmodel

import (
	"github.com/mattn/go-tflite"
	"github.com/sirupsen/logrus"
)

// TFLite evaluates a TensorFlow Lite graph with three inputs (lips, hand
// shape, hand position) and one [1, T', V] output.
type TFLite struct {
	model  *tflite.Model
	interp *tflite.Interpreter
	loaded bool
}

// NewTFLite returns an empty TFLite backend; call Load before Infer.
func NewTFLite() *TFLite {
	return &TFLite{}
}

// Load builds the interpreter from a .tflite file. Returns false when the
// file cannot be read or the graph does not have exactly 3 inputs and at
// least one output.
func (m *TFLite) Load(path string) bool {
	model := tflite.NewModelFromFile(path)
	if model == nil {
		logrus.Errorf("load tflite model: cannot read %s", path)
		return false
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)
	defer options.Delete()

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		model.Delete()
		return false
	}
	if interp.GetInputTensorCount() != 3 || interp.GetOutputTensorCount() < 1 {
		logrus.Errorf("tflite model must have 3 inputs and at least 1 output, got %d/%d",
			interp.GetInputTensorCount(), interp.GetOutputTensorCount())
		interp.Delete()
		model.Delete()
		return false
	}
	if interp.AllocateTensors() != tflite.OK {
		interp.Delete()
		model.Delete()
		return false
	}

	m.close()
	m.model = model
	m.interp = interp
	m.loaded = true
	return true
}

// Loaded reports whether a graph is ready.
func (m *TFLite) Loaded() bool {
	return m.loaded && m.interp != nil
}

// Infer fills the three input tensors and returns the output matrix with
// its [T', V] shape taken from the last two output dimensions.
func (m *TFLite) Infer(lips, shape, pos [][]float32) ([]float32, int, int) {
	if !m.Loaded() {
		return nil, 0, 0
	}

	inputs := [3][][]float32{lips, shape, pos}
	for i, data := range inputs {
		tensor := m.interp.GetInputTensor(i)
		if tensor == nil {
			return nil, 0, 0
		}
		buf := tensor.Float32s()
		dim := 0
		if len(data) > 0 {
			dim = len(data[0])
		}
		for t, row := range data {
			for d := 0; d < dim && t*dim+d < len(buf); d++ {
				buf[t*dim+d] = row[d]
			}
		}
	}

	if m.interp.Invoke() != tflite.OK {
		logrus.Error("tflite invoke failed")
		return nil, 0, 0
	}

	out := m.interp.GetOutputTensor(0)
	if out == nil || out.NumDims() < 3 {
		return nil, 0, 0
	}
	seqLen := out.Dim(out.NumDims() - 2)
	vocab := out.Dim(out.NumDims() - 1)
	if seqLen <= 0 || vocab <= 0 {
		return nil, 0, 0
	}

	data := out.Float32s()
	if len(data) < seqLen*vocab {
		return nil, 0, 0
	}
	result := make([]float32, seqLen*vocab)
	copy(result, data[:seqLen*vocab])
	return result, seqLen, vocab
}

// Close releases interpreter resources.
func (m *TFLite) Close() {
	m.close()
}

func (m *TFLite) close() {
	if m.interp != nil {
		m.interp.Delete()
		m.interp = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	m.loaded = false
}
