// Package decoder implements lexicon- and language-model-constrained CTC
// prefix beam search over committed emission frames.
package decoder

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ieee0824/cuedspeech-go/internal/mathutil"
	"github.com/ieee0824/cuedspeech-go/lexicon"
)

// Config holds beam search parameters.
type Config struct {
	NBest         int     // max hypotheses returned
	BeamSize      int     // max live hypotheses per step
	BeamSizeToken int     // tokens considered per step; <=0 means the full vocabulary
	BeamThreshold float64 // score-margin pruning
	LMWeight      float64 // language model scaling factor
	WordScore     float64 // additive bonus per word emission
	UnkScore      float64 // additive penalty for the unknown word
	SilScore      float64 // additive score on silence token emission
	LogAdd        bool    // merge by logaddexp instead of max

	BlankToken string
	SilToken   string
	UnkWord    string
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		NBest:         1,
		BeamSize:      40,
		BeamSizeToken: -1,
		BeamThreshold: 50.0,
		LMWeight:      3.23,
		WordScore:     0.0,
		UnkScore:      math.Inf(-1),
		SilScore:      0.0,
		BlankToken:    "<BLANK>",
		SilToken:      "_",
		UnkWord:       "<UNK>",
	}
}

// LanguageModel is the capability set the decoder needs from an n-gram
// model. States are opaque but must be comparable: they key hypothesis
// merging.
type LanguageModel interface {
	Start() any
	Score(state any, word string) (any, float64)
}

// Decoder runs lexicon-constrained CTC prefix beam search.
type Decoder struct {
	cfg    Config
	tokens *lexicon.TokenDict
	words  *lexicon.WordDict
	trie   *lexicon.Trie
	lm     LanguageModel

	blankIdx int
	silIdx   int
	unkIdx   int
}

// New creates a decoder over the given dictionaries, trie and language
// model. The trie must already be smeared.
func New(cfg Config, tokens *lexicon.TokenDict, words *lexicon.WordDict, trie *lexicon.Trie, lm LanguageModel) *Decoder {
	d := &Decoder{
		cfg:      cfg,
		tokens:   tokens,
		words:    words,
		trie:     trie,
		lm:       lm,
		blankIdx: -1,
		silIdx:   -1,
		unkIdx:   -1,
	}
	if tokens != nil {
		if i, ok := tokens.Lookup(cfg.BlankToken); ok {
			d.blankIdx = i
		} else {
			logrus.Warnf("blank token %q not found in vocabulary", cfg.BlankToken)
		}
		if i, ok := tokens.Lookup(cfg.SilToken); ok {
			d.silIdx = i
		}
		if i, ok := tokens.Lookup(cfg.UnkWord); ok {
			d.unkIdx = i
		}
	}
	return d
}

// VocabSize returns the token vocabulary size.
func (d *Decoder) VocabSize() int {
	if d == nil || d.tokens == nil {
		return 0
	}
	return d.tokens.Size()
}

// TokenToIdx returns the index of a token string, or -1 when absent.
func (d *Decoder) TokenToIdx(token string) int {
	if d == nil || d.tokens == nil {
		return -1
	}
	if i, ok := d.tokens.Lookup(token); ok {
		return i
	}
	return -1
}

// IdxToToken returns the token string at idx, or "".
func (d *Decoder) IdxToToken(idx int) string {
	if d == nil || d.tokens == nil {
		return ""
	}
	return d.tokens.Entry(idx)
}

// hyp is one live partial hypothesis. Hypotheses live in a per-timestep
// arena; parent is an index into the previous timestep's slice.
type hyp struct {
	score  float64
	node   *lexicon.Node
	lm     any
	parent int32
	token  int32 // token consumed at this step
	word   int32 // word emitted at this step, -1 otherwise
	label  int32 // last non-blank label of the prefix, -1 if none
	blank  bool  // last emission was blank
}

// mergeKey identifies hypotheses that are indistinguishable going
// forward and can be combined.
type mergeKey struct {
	node  *lexicon.Node
	lm    any
	label int32
	blank bool
}

// Decode applies a log-softmax to raw logits and decodes. logits is the
// [T x V] matrix flattened row-major.
func (d *Decoder) Decode(logits []float32, t, v int) []Hypothesis {
	if t <= 0 || v <= 0 || len(logits) < t*v {
		return nil
	}
	lp := make([]float32, t*v)
	copy(lp, logits[:t*v])
	for i := 0; i < t; i++ {
		mathutil.LogSoftmax32(lp[i*v : (i+1)*v])
	}
	return d.DecodeLogProbs(lp, t, v)
}

// DecodeLogProbs decodes a [T x V] log-probability matrix, returning up
// to NBest hypotheses ordered by descending score. An uninitialized
// decoder or empty input yields an empty result.
func (d *Decoder) DecodeLogProbs(lp []float32, bigT, v int) []Hypothesis {
	if d == nil || d.tokens == nil || d.trie == nil {
		return nil
	}
	if bigT <= 0 || v <= 0 || len(lp) < bigT*v {
		return nil
	}

	root := d.trie.Root()
	var lmStart any
	if d.lm != nil {
		lmStart = d.lm.Start()
	}

	steps := make([][]hyp, bigT+1)
	steps[0] = []hyp{{
		score:  0,
		node:   root,
		lm:     lmStart,
		parent: -1,
		token:  -1,
		word:   -1,
		label:  -1,
		blank:  true,
	}}

	cand := make([]int, v)

	for t := 0; t < bigT; t++ {
		row := lp[t*v : (t+1)*v]

		// Top beam_size_token candidates by log-prob; ties keep index
		// order so decoding stays deterministic.
		for i := range cand {
			cand[i] = i
		}
		k := d.cfg.BeamSizeToken
		if k <= 0 || k > v {
			k = v
		}
		if k < v {
			sort.SliceStable(cand, func(i, j int) bool {
				return row[cand[i]] > row[cand[j]]
			})
		}
		cands := cand[:k]

		var next []hyp
		merge := make(map[mergeKey]int)

		emit := func(h hyp) {
			key := mergeKey{node: h.node, lm: h.lm, label: h.label, blank: h.blank}
			i, ok := merge[key]
			if !ok {
				merge[key] = len(next)
				next = append(next, h)
				return
			}
			ex := next[i]
			combined := math.Max(ex.score, h.score)
			if d.cfg.LogAdd {
				combined = mathutil.LogAdd(ex.score, h.score)
			}
			if h.score > ex.score {
				h.score = combined
				next[i] = h
			} else {
				next[i].score = combined
			}
		}

		for pi := range steps[t] {
			h := steps[t][pi]
			for _, tok := range cands {
				lpv := float64(row[tok])

				if tok == d.blankIdx {
					emit(hyp{
						score: h.score + lpv, node: h.node, lm: h.lm,
						parent: int32(pi), token: int32(tok), word: -1,
						label: h.label, blank: true,
					})
					continue
				}

				if !h.blank && int32(tok) == h.label {
					// Token repeat without a separating blank collapses
					// into the same prefix.
					emit(hyp{
						score: h.score + lpv, node: h.node, lm: h.lm,
						parent: int32(pi), token: int32(tok), word: -1,
						label: h.label, blank: false,
					})
					continue
				}

				child := h.node.Child(tok)
				if child == nil {
					continue
				}
				base := h.score + lpv
				if tok == d.silIdx {
					base += d.cfg.SilScore
				}

				for _, lab := range child.Labels {
					word := d.words.Entry(lab.Word)
					st, lmsc := h.lm, 0.0
					if d.lm != nil {
						st, lmsc = d.lm.Score(h.lm, word)
					}
					s := base + d.cfg.LMWeight*lmsc + d.cfg.WordScore
					if word == d.cfg.UnkWord {
						s += d.cfg.UnkScore
					}
					if math.IsInf(s, -1) {
						continue
					}
					emit(hyp{
						score: s, node: root, lm: st,
						parent: int32(pi), token: int32(tok), word: int32(lab.Word),
						label: int32(tok), blank: false,
					})
				}

				if len(child.Children) > 0 {
					emit(hyp{
						score: base, node: child, lm: h.lm,
						parent: int32(pi), token: int32(tok), word: -1,
						label: int32(tok), blank: false,
					})
				}
			}
		}

		if len(next) == 0 {
			return nil
		}
		steps[t+1] = d.prune(next)
	}

	final := append([]hyp(nil), steps[bigT]...)
	sort.SliceStable(final, func(i, j int) bool {
		return final[i].score > final[j].score
	})

	n := d.cfg.NBest
	if n <= 0 {
		n = 1
	}
	if n > len(final) {
		n = len(final)
	}

	results := make([]Hypothesis, 0, n)
	for _, h := range final[:n] {
		results = append(results, d.backtrace(steps, h, bigT))
	}
	return results
}

// rank adds the smeared best-completion estimate to a hypothesis score;
// mid-word hypotheses are pruned against what they can still become.
func (d *Decoder) rank(h hyp) float64 {
	ms := h.node.MaxScore
	if d.cfg.LMWeight == 0 || math.IsInf(ms, -1) {
		return h.score
	}
	return h.score + d.cfg.LMWeight*ms
}

func (d *Decoder) prune(src []hyp) []hyp {
	best := math.Inf(-1)
	for i := range src {
		if r := d.rank(src[i]); r > best {
			best = r
		}
	}

	threshold := best - d.cfg.BeamThreshold
	dst := src[:0]
	for _, h := range src {
		if d.rank(h) >= threshold {
			dst = append(dst, h)
		}
	}

	sort.SliceStable(dst, func(i, j int) bool {
		return d.rank(dst[i]) > d.rank(dst[j])
	})
	if d.cfg.BeamSize > 0 && len(dst) > d.cfg.BeamSize {
		dst = dst[:d.cfg.BeamSize]
	}
	return dst
}

// backtrace follows parent indices from h back to the start, recovering
// the per-timestep token path and the emitted word sequence.
func (d *Decoder) backtrace(steps [][]hyp, h hyp, bigT int) Hypothesis {
	out := Hypothesis{
		Tokens: make([]int, bigT),
		Score:  h.score,
	}
	cur := h
	for t := bigT; t >= 1; t-- {
		out.Tokens[t-1] = int(cur.token)
		if cur.word >= 0 {
			out.WordIdxs = append(out.WordIdxs, int(cur.word))
		}
		cur = steps[t-1][cur.parent]
	}
	for i, j := 0, len(out.WordIdxs)-1; i < j; i, j = i+1, j-1 {
		out.WordIdxs[i], out.WordIdxs[j] = out.WordIdxs[j], out.WordIdxs[i]
	}
	out.Words = make([]string, len(out.WordIdxs))
	for i, wi := range out.WordIdxs {
		out.Words[i] = d.words.Entry(wi)
	}
	return out
}

// IdxsToTokens converts a raw best token path to user-visible phonemes:
// the leading and trailing tokens are dropped (a path shorter than two
// tokens keeps them), special tokens removed, adjacent duplicates
// collapsed and trailing silence trimmed.
func (d *Decoder) IdxsToTokens(indices []int) []string {
	if d == nil || d.tokens == nil {
		return nil
	}
	tokens := make([]string, len(indices))
	for i, idx := range indices {
		tokens[i] = d.tokens.Entry(idx)
	}
	if len(tokens) >= 2 {
		tokens = tokens[1 : len(tokens)-1]
	}

	filtered := tokens[:0]
	for _, tok := range tokens {
		switch tok {
		case "", "<BLANK>", "<PAD>", "<SOS>", "<EOS>":
			continue
		}
		filtered = append(filtered, tok)
	}

	deduped := make([]string, 0, len(filtered))
	for _, tok := range filtered {
		if len(deduped) == 0 || deduped[len(deduped)-1] != tok {
			deduped = append(deduped, tok)
		}
	}

	sil := d.cfg.SilToken
	if sil == "" {
		sil = "_"
	}
	for len(deduped) > 0 && deduped[len(deduped)-1] == sil {
		deduped = deduped[:len(deduped)-1]
	}
	return deduped
}
