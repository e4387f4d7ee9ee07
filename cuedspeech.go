// Package cuedspeech is a streaming cued-speech recognizer: per-frame
// landmark observations go through geometric feature extraction,
// overlap-save windowed sequence-model inference and lexicon+LM
// constrained CTC beam search, producing a rolling phoneme transcript
// optionally lifted to a sentence through homophone disambiguation.
package cuedspeech

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ieee0824/cuedspeech-go/corrector"
	"github.com/ieee0824/cuedspeech-go/decoder"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/landmark"
	"github.com/ieee0824/cuedspeech-go/language"
	"github.com/ieee0824/cuedspeech-go/lexicon"
	"github.com/ieee0824/cuedspeech-go/seqmodel"
	"github.com/ieee0824/cuedspeech-go/stream"
)

// Result is one recognition update: the rolling phoneme transcript, the
// corrected sentence when a corrector is attached, and the top
// hypothesis score.
type Result struct {
	FrameNumber int
	Phonemes    []string
	Sentence    string
	Confidence  float64
}

// Recognizer owns the shared read-only decoding resources: dictionaries,
// trie, language model and decoder. It may back any number of concurrent
// streams.
type Recognizer struct {
	Tokens *lexicon.TokenDict
	Words  *lexicon.WordDict
	Trie   *lexicon.Trie
	LM     *language.NGramModel
	Dec    *decoder.Decoder
	DecCfg decoder.Config

	corr *corrector.Corrector
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithDecoderConfig sets custom beam search parameters.
func WithDecoderConfig(cfg decoder.Config) Option {
	return func(r *Recognizer) {
		r.DecCfg = cfg
	}
}

// WithCorrector attaches a homophone sentence corrector. Load failures
// degrade gracefully: a warning is logged and results carry raw
// phonemes only.
func WithCorrector(homophonesPath, lmPath string) Option {
	return func(r *Recognizer) {
		c, err := corrector.New(homophonesPath, lmPath)
		if err != nil {
			logrus.Warnf("corrector unavailable: %v", err)
			return
		}
		r.corr = c
	}
}

// WithCorrectorModel attaches a pre-built corrector.
func WithCorrectorModel(c *corrector.Corrector) Option {
	return func(r *Recognizer) {
		r.corr = c
	}
}

// NewRecognizer loads the vocabulary, lexicon and language model, builds
// the smeared trie and the decoder.
func NewRecognizer(tokensPath, lexiconPath, lmPath string, opts ...Option) (*Recognizer, error) {
	r := &Recognizer{DecCfg: decoder.DefaultConfig()}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	r.Tokens, err = lexicon.LoadTokensFile(tokensPath)
	if err != nil {
		return nil, fmt.Errorf("load tokens: %w", err)
	}

	lex, err := lexicon.LoadLexiconFile(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	r.Words = lexicon.NewWordDict(lex)

	r.LM, err = language.LoadARPAFile(lmPath)
	if err != nil {
		return nil, fmt.Errorf("load language model: %w", err)
	}

	r.Trie = BuildTrie(lex, r.Tokens, r.Words, r.LM)
	r.Dec = decoder.New(r.DecCfg, r.Tokens, r.Words, r.Trie, r.LM)

	logrus.WithFields(logrus.Fields{
		"vocab": r.Tokens.Size(),
		"words": r.Words.Size(),
		"nodes": r.Trie.NumNodes(),
	}).Info("recognizer initialized")

	return r, nil
}

// NewRecognizerFromModels builds a Recognizer from pre-loaded parts.
func NewRecognizerFromModels(tokens *lexicon.TokenDict, lex *lexicon.Lexicon, lm *language.NGramModel, opts ...Option) *Recognizer {
	r := &Recognizer{DecCfg: decoder.DefaultConfig()}
	for _, opt := range opts {
		opt(r)
	}
	r.Tokens = tokens
	r.Words = lexicon.NewWordDict(lex)
	r.LM = lm
	r.Trie = BuildTrie(lex, tokens, r.Words, lm)
	r.Dec = decoder.New(r.DecCfg, tokens, r.Words, r.Trie, lm)
	return r
}

// BuildTrie inserts every lexicon spelling into a token-index trie,
// recording each word's begin-of-sentence LM score at the terminal, and
// smears it. Spellings with tokens outside the vocabulary are skipped
// with a warning.
func BuildTrie(lex *lexicon.Lexicon, tokens *lexicon.TokenDict, words *lexicon.WordDict, lm decoder.LanguageModel) *lexicon.Trie {
	trie := lexicon.NewTrie()
	var start any
	if lm != nil {
		start = lm.Start()
	}

	for _, entry := range lex.Entries {
		wordIdx, ok := words.Index(entry.Word)
		if !ok {
			continue
		}
		score := 0.0
		if lm != nil {
			_, score = lm.Score(start, entry.Word)
		}
		for _, spelling := range entry.Spellings {
			idxs := make([]int, 0, len(spelling))
			for _, tok := range spelling {
				i, ok := tokens.Lookup(tok)
				if !ok {
					logrus.Warnf("lexicon token %q not found in vocabulary; skipping spelling for %q", tok, entry.Word)
					idxs = nil
					break
				}
				idxs = append(idxs, i)
			}
			if len(idxs) > 0 {
				trie.Insert(idxs, wordIdx, score)
			}
		}
	}

	trie.Smear()
	return trie
}

// Stream is one live recognition session. It owns the feature history
// needed for temporal derivatives and the window processor. Streams are
// single-owner; a shared Recognizer may back many of them.
type Stream struct {
	rec   *Recognizer
	proc  *stream.Processor
	prev  *landmark.Frame
	prev2 *landmark.Frame
}

// NewStream creates a stream decoding through the given model adapter.
func (r *Recognizer) NewStream(model *seqmodel.Adapter) *Stream {
	return &Stream{
		rec:  r,
		proc: stream.NewProcessor(r.Dec, model),
	}
}

// Push extracts features from one landmark frame and buffers them.
// Incomplete frames are dropped and counted. Reports whether a window is
// ready to process.
func (s *Stream) Push(frame *landmark.Frame) bool {
	v, ok := feature.Extract(frame, s.prev, s.prev2)
	ready := s.proc.Push(v, ok)
	s.prev2 = s.prev
	s.prev = frame.Clone()
	return ready
}

// PushFeatures buffers an already-extracted feature vector.
func (s *Stream) PushFeatures(v feature.Vector) bool {
	return s.proc.Push(v, true)
}

// Process runs the next overlap-save decode if its threshold is met and
// returns the whole accumulated transcript.
func (s *Stream) Process() (Result, error) {
	r, err := s.proc.Process()
	return s.finish(r, err)
}

// Finalize flushes the tail window shorter than the nominal size.
func (s *Stream) Finalize() (Result, error) {
	r, err := s.proc.Finalize()
	return s.finish(r, err)
}

// Reset clears all stream state for a new utterance.
func (s *Stream) Reset() {
	s.proc.Reset()
	s.prev = nil
	s.prev2 = nil
}

// TotalFramesSeen returns the number of frames pushed, valid or not.
func (s *Stream) TotalFramesSeen() int { return s.proc.TotalFramesSeen() }

// ValidFrames returns the number of buffered valid frames.
func (s *Stream) ValidFrames() int { return s.proc.ValidFrames() }

// DroppedFrames returns the number of frames dropped as invalid.
func (s *Stream) DroppedFrames() int { return s.proc.DroppedFrames() }

func (s *Stream) finish(r stream.Result, err error) (Result, error) {
	res := Result{
		FrameNumber: r.FrameNumber,
		Phonemes:    r.Phonemes,
		Confidence:  r.Confidence,
	}
	if err != nil {
		return res, err
	}
	if s.rec.corr != nil && len(res.Phonemes) > 0 {
		res.Sentence = s.rec.corr.Correct(res.Phonemes)
	}
	return res, nil
}
