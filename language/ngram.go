// Package language implements the backoff n-gram language model used to
// score word sequences during beam search. Probabilities are natural-log.
package language

import "github.com/ieee0824/cuedspeech-go/internal/mathutil"

// State is an immutable scoring context: the last words seen, truncated
// to what the model order can use. State values are comparable and key
// hypothesis merging in the beam searches.
type State struct {
	prev1, prev2 string
}

// NGramModel represents an n-gram language model.
type NGramModel struct {
	Order    int // 2 for bigram, 3 for trigram
	Unigrams map[string]ngramEntry
	Bigrams  map[[2]string]ngramEntry
	Trigrams map[[3]string]ngramEntry

	// OOVLogProb, when non-zero, replaces the unigram score of words
	// absent from the model. Zero leaves out-of-vocabulary words at
	// LogZero.
	OOVLogProb float64
}

type ngramEntry struct {
	LogProb    float64
	LogBackoff float64
}

// NewNGramModel creates an empty n-gram model.
func NewNGramModel(order int) *NGramModel {
	return &NGramModel{
		Order:    order,
		Unigrams: make(map[string]ngramEntry),
		Bigrams:  make(map[[2]string]ngramEntry),
		Trigrams: make(map[[3]string]ngramEntry),
	}
}

// Start returns the begin-of-sentence state.
func (m *NGramModel) Start() any {
	return State{prev1: "<s>"}
}

// Score returns the state reached by consuming word along with the
// conditional log probability of that step.
func (m *NGramModel) Score(state any, word string) (any, float64) {
	s, _ := state.(State)
	lp := m.LogProb(s.history(), word)
	return m.advance(s, word), lp
}

func (s State) history() []string {
	switch {
	case s.prev1 == "":
		return nil
	case s.prev2 == "":
		return []string{s.prev1}
	default:
		return []string{s.prev2, s.prev1}
	}
}

// advance shifts word into the context window, keeping only as much
// history as the model order can consult so that equivalent contexts
// compare equal.
func (m *NGramModel) advance(s State, word string) State {
	next := State{prev1: word}
	if m.Order >= 3 {
		next.prev2 = s.prev1
	}
	if m.Order < 2 {
		next.prev1 = ""
	}
	return next
}

// LogProb returns the log probability of a word given its history,
// backing off when the exact n-gram is not found.
func (m *NGramModel) LogProb(history []string, word string) float64 {
	if m.Order >= 3 && len(history) >= 2 {
		key := [3]string{history[len(history)-2], history[len(history)-1], word}
		if e, ok := m.Trigrams[key]; ok {
			return e.LogProb
		}
		biKey := [2]string{history[len(history)-2], history[len(history)-1]}
		if e, ok := m.Bigrams[biKey]; ok {
			return e.LogBackoff + m.logProbBigram(history[len(history)-1], word)
		}
	}

	if m.Order >= 2 && len(history) >= 1 {
		return m.logProbBigram(history[len(history)-1], word)
	}

	return m.logProbUnigram(word)
}

func (m *NGramModel) logProbBigram(prev, word string) float64 {
	key := [2]string{prev, word}
	if e, ok := m.Bigrams[key]; ok {
		return e.LogProb
	}
	if e, ok := m.Unigrams[prev]; ok {
		return e.LogBackoff + m.logProbUnigram(word)
	}
	return m.logProbUnigram(word)
}

func (m *NGramModel) logProbUnigram(word string) float64 {
	if e, ok := m.Unigrams[word]; ok {
		return e.LogProb
	}
	if m.OOVLogProb != 0 {
		return m.OOVLogProb
	}
	return mathutil.LogZero
}

// SentenceLogProb returns the total log probability of a word sequence,
// adding <s> at the beginning and </s> at the end.
func (m *NGramModel) SentenceLogProb(words []string) float64 {
	total := 0.0
	state := m.Start()
	for _, w := range words {
		var lp float64
		state, lp = m.Score(state, w)
		total += lp
	}
	_, lp := m.Score(state, "</s>")
	return total + lp
}

// Vocab returns all words in the unigram vocabulary.
func (m *NGramModel) Vocab() []string {
	words := make([]string, 0, len(m.Unigrams))
	for w := range m.Unigrams {
		words = append(words, w)
	}
	return words
}
