package stream

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ieee0824/cuedspeech-go/decoder"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/lexicon"
	"github.com/ieee0824/cuedspeech-go/seqmodel"
)

type uniformLM struct{}

func (uniformLM) Start() any { return "" }

func (uniformLM) Score(state any, word string) (any, float64) { return "", -0.5 }

func newTestDecoder(t *testing.T) *decoder.Decoder {
	t.Helper()
	tokens, err := lexicon.LoadTokens(strings.NewReader("b\no~\nz^\nu\nr\n_\n"))
	if err != nil {
		t.Fatalf("LoadTokens error: %v", err)
	}
	lex, err := lexicon.LoadLexicon(strings.NewReader("bonjour\tb o~ z^ u r\n"))
	if err != nil {
		t.Fatalf("LoadLexicon error: %v", err)
	}
	words := lexicon.NewWordDict(lex)

	trie := lexicon.NewTrie()
	idxs := make([]int, 0, 5)
	for _, tok := range []string{"b", "o~", "z^", "u", "r"} {
		i, _ := tokens.Lookup(tok)
		idxs = append(idxs, i)
	}
	trie.Insert(idxs, 0, -0.5)
	trie.Smear()

	cfg := decoder.DefaultConfig()
	cfg.LMWeight = 1.0
	cfg.BeamThreshold = 100.0
	return decoder.New(cfg, tokens, words, trie, uniformLM{})
}

// blankModel returns an adapter whose backend emits blank-favoring
// logits for every timestep, with the given vocabulary size.
func blankModel(vocab int) *seqmodel.Adapter {
	backend := &seqmodel.StubBackend{
		InferFunc: func(lips, shape, pos [][]float32) ([]float32, int, int) {
			seqLen := len(lips)
			out := make([]float32, seqLen*vocab)
			for t := 0; t < seqLen; t++ {
				out[t*vocab] = 8.0
			}
			return out, seqLen, vocab
		},
	}
	a := seqmodel.NewAdapter(backend)
	a.Load("")
	return a
}

func pushValid(p *Processor, n int) []int {
	var processed []int
	for i := 0; i < n; i++ {
		if p.Push(feature.Vector{}, true) {
			if _, err := p.Process(); err == nil {
				processed = append(processed, p.ValidFrames())
			}
		}
	}
	return processed
}

func TestProcess_Thresholds(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))

	processed := pushValid(p, 300)
	want := []int{100, 125, 150, 200, 250, 300}
	if !reflect.DeepEqual(processed, want) {
		t.Errorf("decode points = %v, want %v", processed, want)
	}
	if p.ChunksProcessed() != 6 {
		t.Errorf("chunks processed = %d, want 6", p.ChunksProcessed())
	}
}

func TestProcess_CommitSizes(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))
	pushValid(p, 300)

	// k=0 commits Commit rows, k=1 commits LeftContext rows, k>=2 commit
	// Commit rows each. Committed totals follow Commit*k + RightContext.
	wantRows := []int{50, 25, 50, 50, 50, 50}
	if len(p.commits) != len(wantRows) {
		t.Fatalf("commit blocks = %d, want %d", len(p.commits), len(wantRows))
	}
	for i, block := range p.commits {
		if rows := len(block) / 11; rows != wantRows[i] {
			t.Errorf("block %d rows = %d, want %d", i, rows, wantRows[i])
		}
	}
}

func TestProcess_NoOpBelowThreshold(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))
	for i := 0; i < 99; i++ {
		if p.Push(feature.Vector{}, true) {
			t.Fatalf("window ready at %d frames", i+1)
		}
	}

	r, err := p.Process()
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(r.Phonemes) != 0 || p.chunkIdx != 0 || len(p.commits) != 0 {
		t.Error("Process below threshold should be a no-op")
	}
}

func TestProcess_NoModel(t *testing.T) {
	backend := &seqmodel.StubBackend{}
	p := NewProcessor(newTestDecoder(t), seqmodel.NewAdapter(backend))

	for i := 0; i < 200; i++ {
		p.Push(feature.Vector{}, true)
	}
	r, err := p.Process()
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(r.Phonemes) != 0 || r.Confidence != 0 {
		t.Errorf("unloaded model should yield empty result, got %+v", r)
	}

	r, err = p.Finalize()
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(r.Phonemes) != 0 || r.Confidence != 0 {
		t.Errorf("unloaded model finalize should be empty, got %+v", r)
	}
}

func TestProcess_VocabChangeError(t *testing.T) {
	vocab := 11
	backend := &seqmodel.StubBackend{
		InferFunc: func(lips, shape, pos [][]float32) ([]float32, int, int) {
			seqLen := len(lips)
			out := make([]float32, seqLen*vocab)
			return out, seqLen, vocab
		},
	}
	model := seqmodel.NewAdapter(backend)
	model.Load("")
	p := NewProcessor(newTestDecoder(t), model)

	for i := 0; i < 100; i++ {
		p.Push(feature.Vector{}, true)
	}
	if _, err := p.Process(); err != nil {
		t.Fatalf("first Process error: %v", err)
	}

	vocab = 13
	for i := 0; i < 25; i++ {
		p.Push(feature.Vector{}, true)
	}
	if _, err := p.Process(); err == nil {
		t.Fatal("expected error on vocabulary size change")
	}
	if len(p.commits) != 1 {
		t.Errorf("offending window was committed: blocks = %d", len(p.commits))
	}
}

func TestFinalize_Tail(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))
	pushValid(p, 110)

	if len(p.commits) != 1 {
		t.Fatalf("commit blocks before finalize = %d, want 1", len(p.commits))
	}
	if _, err := p.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(p.commits) != 2 {
		t.Fatalf("commit blocks after finalize = %d, want 2", len(p.commits))
	}
	// Tail window [25,109]; commit [50,109] is rows 25..84 of the
	// window output.
	if rows := len(p.commits[1]) / 11; rows != 60 {
		t.Errorf("tail rows = %d, want 60", rows)
	}
}

func TestFinalize_ShortTailKeepsLastResult(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))

	// 10 valid frames: tail shorter than LeftContext, nothing to flush.
	for i := 0; i < 10; i++ {
		p.Push(feature.Vector{}, true)
	}
	r, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(r.Phonemes) != 0 || len(p.commits) != 0 {
		t.Error("short tail should not decode")
	}
}

func TestFinalize_NothingUncommitted(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))
	for i := 0; i < 50; i++ {
		p.Push(feature.Vector{}, true)
	}
	p.chunkIdx = 1 // pretend the first 50 frames are already committed

	if _, err := p.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(p.commits) != 0 {
		t.Error("fully committed stream should not decode on finalize")
	}
}

func TestPush_DropAccounting(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))

	for i := 0; i < 300; i++ {
		p.Push(feature.Vector{}, i%6 != 0) // 50 invalid of 300
	}
	if p.TotalFramesSeen() != 300 {
		t.Errorf("total = %d, want 300", p.TotalFramesSeen())
	}
	if p.ValidFrames() != 250 {
		t.Errorf("valid = %d, want 250", p.ValidFrames())
	}
	if p.DroppedFrames() != 50 {
		t.Errorf("dropped = %d, want 50", p.DroppedFrames())
	}
}

func TestReset(t *testing.T) {
	p := NewProcessor(newTestDecoder(t), blankModel(11))
	pushValid(p, 150)

	p.Reset()
	if p.TotalFramesSeen() != 0 || p.ValidFrames() != 0 || p.ChunksProcessed() != 0 {
		t.Error("counters survive reset")
	}
	if p.chunkIdx != 0 || p.nextWindowNeeded != Window || len(p.commits) != 0 {
		t.Error("window state survives reset")
	}

	// The schedule restarts from scratch.
	processed := pushValid(p, 130)
	if !reflect.DeepEqual(processed, []int{100, 125}) {
		t.Errorf("decode points after reset = %v, want [100 125]", processed)
	}
}

func TestScheduleConstants(t *testing.T) {
	if LeftContext+Commit+RightContext != Window {
		t.Error("window partition must cover the window exactly")
	}
}
