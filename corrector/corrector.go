// Package corrector lifts a LIAPHON phoneme sequence to a natural
// language sentence by choosing among homophone spellings with a
// word-level n-gram model.
package corrector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ieee0824/cuedspeech-go/language"
	"github.com/ieee0824/cuedspeech-go/phoneme"
)

// DefaultBeamWidth is the homophone beam search width.
const DefaultBeamWidth = 20

// WordScorer is the capability set the corrector needs from a language
// model. States are threaded opaquely between Score calls.
type WordScorer interface {
	Start() any
	Score(state any, word string) (any, float64)
}

// Corrector maps IPA word tokens to homophone candidate sets and picks
// the best spelling sequence by beam search.
type Corrector struct {
	homophones map[string][]string
	lm         WordScorer
	beamWidth  int
}

// New loads the homophones file (one JSON object per line) and the ARPA
// language model from disk.
func New(homophonesPath, lmPath string) (*Corrector, error) {
	f, err := os.Open(homophonesPath)
	if err != nil {
		return nil, fmt.Errorf("open homophones: %w", err)
	}
	defer f.Close()

	homophones, err := LoadHomophones(f)
	if err != nil {
		return nil, fmt.Errorf("load homophones: %w", err)
	}

	lm, err := language.LoadARPAFile(lmPath)
	if err != nil {
		return nil, fmt.Errorf("load corrector LM: %w", err)
	}

	return NewFromModel(homophones, lm), nil
}

// NewFromModel builds a corrector from in-memory parts.
func NewFromModel(homophones map[string][]string, lm WordScorer) *Corrector {
	return &Corrector{
		homophones: homophones,
		lm:         lm,
		beamWidth:  DefaultBeamWidth,
	}
}

// SetBeamWidth overrides the beam width; widths below 1 keep the
// default.
func (c *Corrector) SetBeamWidth(b int) {
	if b >= 1 {
		c.beamWidth = b
	}
}

// LoadHomophones parses the JSONL homophone mapping. Each line carries
// at least {"ipa": "..."} and optionally {"words": [...]}; an entry
// without words maps to itself. Malformed lines are skipped with a
// warning.
func LoadHomophones(r io.Reader) (map[string][]string, error) {
	out := make(map[string][]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			IPA   string   `json:"ipa"`
			Words []string `json:"words"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.IPA == "" {
			logrus.Warnf("homophones line %d: skipping malformed entry", lineNum)
			continue
		}
		if len(entry.Words) == 0 {
			entry.Words = []string{entry.IPA}
		}
		out[entry.IPA] = entry.Words
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Correct turns a LIAPHON phoneme sequence into a sentence: concatenate
// to IPA, split on the silence-derived spaces, expand each word token to
// its homophone set and beam-search with the LM. Returns "" when the
// corrector is unusable or nothing decodes; the caller then falls back
// to raw phonemes.
func (c *Corrector) Correct(liaphon []string) string {
	if c == nil || c.lm == nil {
		return ""
	}

	ipa := phoneme.ToIPA(liaphon)
	tokens := strings.Fields(ipa)
	if len(tokens) == 0 {
		if ipa == "" {
			return ""
		}
		tokens = []string{ipa}
	}

	lists := make([][]string, len(tokens))
	for i, tok := range tokens {
		if words, ok := c.homophones[tok]; ok && len(words) > 0 {
			lists[i] = words
		} else {
			lists[i] = []string{tok}
		}
	}

	best := c.beamSearch(lists)
	if len(best) == 0 {
		return ""
	}

	sentence := strings.Join(best, " ")
	sentence = capitalize(sentence)
	if !strings.HasSuffix(sentence, ".") {
		sentence += "."
	}
	return sentence
}

type beam struct {
	score float64
	state any
	words []string
}

func (c *Corrector) beamSearch(lists [][]string) []string {
	beams := []beam{{score: 0, state: c.lm.Start()}}

	for _, candidates := range lists {
		next := make([]beam, 0, len(beams)*len(candidates))
		for _, b := range beams {
			for _, word := range candidates {
				state, lp := c.lm.Score(b.state, word)
				words := make([]string, len(b.words), len(b.words)+1)
				copy(words, b.words)
				next = append(next, beam{
					score: b.score + lp,
					state: state,
					words: append(words, word),
				})
			}
		}
		if len(next) == 0 {
			return nil
		}
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].score > next[j].score
		})
		if len(next) > c.beamWidth {
			next = next[:c.beamWidth]
		}
		beams = next
	}

	if len(beams) == 0 {
		return nil
	}
	return beams[0].words
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
