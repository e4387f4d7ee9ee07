// Package stream implements overlap-save streaming decoding: it buffers
// valid feature frames, runs the sequence model on sliding windows and
// commits only the stable interior of each window's emissions before
// re-decoding the full accumulated matrix.
package stream

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ieee0824/cuedspeech-go/decoder"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/seqmodel"
)

// Overlap-save schedule. LeftContext + Commit + RightContext = Window.
const (
	Window       = 100
	Commit       = 50
	LeftContext  = 25
	RightContext = 25
)

// Result is the rolling transcript after a commit.
type Result struct {
	FrameNumber int
	Phonemes    []string
	Confidence  float64
}

// Processor owns the per-stream windowing state.
type Processor struct {
	dec   *decoder.Decoder
	model *seqmodel.Adapter

	features         []feature.Vector
	commits          [][]float32 // committed logit blocks, frame-ordered
	chunkIdx         int
	nextWindowNeeded int
	vocab            int // pinned to the first non-zero V observed

	totalFramesSeen int
	chunksProcessed int
	lastResult      Result
}

// NewProcessor creates a processor bound to a decoder and model adapter.
func NewProcessor(dec *decoder.Decoder, model *seqmodel.Adapter) *Processor {
	p := &Processor{dec: dec, model: model}
	p.Reset()
	return p
}

// Reset clears the feature buffer and accumulated logits and restores
// the initial schedule.
func (p *Processor) Reset() {
	p.features = p.features[:0]
	p.commits = nil
	p.chunkIdx = 0
	p.nextWindowNeeded = Window
	p.vocab = 0
	p.totalFramesSeen = 0
	p.chunksProcessed = 0
	p.lastResult = Result{}
}

// Push appends one frame. Invalid frames are counted and dropped, never
// buffered. Reports whether enough frames have accumulated for the next
// decode.
func (p *Processor) Push(v feature.Vector, valid bool) bool {
	p.totalFramesSeen++
	if !valid {
		return false
	}
	p.features = append(p.features, v)
	return len(p.features) >= p.nextWindowNeeded
}

// TotalFramesSeen returns the number of frames pushed, valid or not.
func (p *Processor) TotalFramesSeen() int { return p.totalFramesSeen }

// ValidFrames returns the number of buffered valid frames.
func (p *Processor) ValidFrames() int { return len(p.features) }

// DroppedFrames returns the number of invalid frames dropped.
func (p *Processor) DroppedFrames() int { return p.totalFramesSeen - len(p.features) }

// ChunksProcessed returns the number of decodes that produced output.
func (p *Processor) ChunksProcessed() int { return p.chunksProcessed }

// Process runs one overlap-save step if the threshold is met, committing
// the window's stable interior and re-decoding the whole accumulated
// matrix. Below the threshold it is a no-op. A vocabulary-size change
// between windows is surfaced as an error and nothing is committed.
func (p *Processor) Process() (Result, error) {
	result := Result{FrameNumber: len(p.features)}

	if p.model == nil || !p.model.Loaded() {
		return result, nil
	}
	numValid := len(p.features)
	if numValid < p.nextWindowNeeded {
		return result, nil
	}

	var windowStart, windowEnd, commitStart, commitEnd int
	switch {
	case p.chunkIdx == 0:
		windowStart = 0
		windowEnd = min(Window-1, numValid-1)
		commitStart = 0
		commitEnd = min(Commit-1, numValid-1)
		p.nextWindowNeeded = LeftContext + Window
	case p.chunkIdx == 1:
		// The second commit spans LeftContext frames, not Commit: it
		// stitches the start-up transient and keeps timestep alignment.
		windowStart = LeftContext
		windowEnd = min(windowStart+Window-1, numValid-1)
		commitStart = Commit
		commitEnd = min(commitStart+LeftContext-1, numValid-1)
		p.nextWindowNeeded = Commit + Window
	default:
		windowStart = Commit * (p.chunkIdx - 1)
		windowEnd = min(windowStart+Window-1, numValid-1)
		commitStart = windowStart + LeftContext
		commitEnd = min(commitStart+Commit-1, numValid-1)
		p.nextWindowNeeded = Commit*p.chunkIdx + Window
	}

	logrus.WithFields(logrus.Fields{
		"valid":  numValid,
		"chunk":  p.chunkIdx,
		"window": fmt.Sprintf("[%d,%d]", windowStart, windowEnd),
		"commit": fmt.Sprintf("[%d,%d]", commitStart, commitEnd),
	}).Debug("processing window")

	block, vocab := p.processSingleWindow(windowStart, windowEnd, commitStart, commitEnd)
	if len(block) == 0 {
		p.chunkIdx++
		return result, nil
	}
	if err := p.pinVocab(vocab); err != nil {
		return result, err
	}

	p.commits = append(p.commits, block)
	p.chunkIdx++

	return p.decodeAccumulated(result)
}

// Finalize flushes the tail shorter than the nominal window. When fewer
// than LeftContext uncommitted frames remain, the last hypothesis is
// returned unchanged.
func (p *Processor) Finalize() (Result, error) {
	result := Result{FrameNumber: len(p.features)}

	if p.model == nil || !p.model.Loaded() {
		return result, nil
	}
	numValid := len(p.features)
	if numValid == 0 {
		return result, nil
	}

	var committed int
	switch {
	case p.chunkIdx == 0:
		committed = 0
	case p.chunkIdx == 1:
		committed = Commit
	default:
		committed = Commit + LeftContext + (p.chunkIdx-2)*Commit
	}
	if committed >= numValid {
		return p.lastResult, nil
	}

	windowStart, commitStart := 0, 0
	switch {
	case p.chunkIdx == 0:
	case p.chunkIdx == 1:
		windowStart = LeftContext
		commitStart = Commit
	default:
		windowStart = Commit * (p.chunkIdx - 1)
		commitStart = windowStart + LeftContext
	}
	windowEnd := numValid - 1
	commitEnd := numValid - 1

	if windowEnd-windowStart+1 < LeftContext {
		return p.lastResult, nil
	}

	block, vocab := p.processSingleWindow(windowStart, windowEnd, commitStart, commitEnd)
	if len(block) == 0 {
		return result, nil
	}
	if err := p.pinVocab(vocab); err != nil {
		return result, err
	}

	p.commits = append(p.commits, block)
	return p.decodeAccumulated(result)
}

// processSingleWindow pads the window to the nominal size, runs the
// model and slices out the commit range, clamped to the model's output
// length. Returns the committed rows flattened and the reported V.
func (p *Processor) processSingleWindow(windowStart, windowEnd, commitStart, commitEnd int) ([]float32, int) {
	if windowEnd < windowStart {
		return nil, 0
	}

	frames := p.features[windowStart : windowEnd+1]
	logits, seqLen, vocab := p.model.Infer(frames, Window)
	if len(logits) == 0 || vocab <= 0 || seqLen <= 0 {
		return nil, 0
	}

	startRel := max(commitStart-windowStart, 0)
	endRel := min(commitEnd-windowStart, seqLen-1)
	if startRel > endRel {
		return nil, 0
	}

	block := make([]float32, 0, (endRel-startRel+1)*vocab)
	block = append(block, logits[startRel*vocab:(endRel+1)*vocab]...)
	return block, vocab
}

// pinVocab fixes V on first observation; a later window disagreeing is
// an error, because token indices would be meaningless across the
// change.
func (p *Processor) pinVocab(vocab int) error {
	if vocab <= 0 {
		return nil
	}
	if p.vocab == 0 {
		p.vocab = vocab
		return nil
	}
	if p.vocab != vocab {
		return fmt.Errorf("vocabulary size changed between windows: %d -> %d", p.vocab, vocab)
	}
	return nil
}

// decodeAccumulated concatenates every committed block and decodes the
// whole matrix, reporting the top hypothesis.
func (p *Processor) decodeAccumulated(result Result) (Result, error) {
	vocab := p.dec.VocabSize()
	if vocab <= 0 {
		vocab = p.vocab
	}
	if vocab <= 0 {
		return result, nil
	}

	total := 0
	for _, block := range p.commits {
		total += len(block) / vocab
	}
	if total <= 0 {
		return result, nil
	}

	full := make([]float32, 0, total*vocab)
	for _, block := range p.commits {
		full = append(full, block...)
	}

	logrus.WithFields(logrus.Fields{"frames": total, "vocab": vocab}).
		Debug("decoding accumulated logits")

	hyps := p.dec.Decode(full, total, vocab)
	if len(hyps) > 0 {
		result.Phonemes = p.dec.IdxsToTokens(hyps[0].Tokens)
		result.Confidence = hyps[0].Score
		p.chunksProcessed++
		p.lastResult = result
	}
	return result, nil
}
