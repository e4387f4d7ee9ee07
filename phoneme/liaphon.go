// Package phoneme translates between IPA graphemes and the LIAPHON ASCII
// transliteration used by the sequence model's token vocabulary.
package phoneme

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IPAToLIAPHON maps IPA graphemes to LIAPHON tokens. Nasal vowels are
// two-codepoint keys (base vowel plus combining tilde).
var IPAToLIAPHON = map[string]string{
	"a": "a", "ə": "x", "ɛ": "e^", "œ": "x^",
	"i": "i", "y": "y", "e": "e", "u": "u",
	"ɔ": "o", "o": "o^", "ɑ̃": "a~", "ɛ̃": "e~",
	"ɔ̃": "o~", "œ̃": "x~", " ": "_", "b": "b",
	"c": "k", "d": "d", "f": "f", "ɡ": "g",
	"j": "j", "k": "k", "l": "l", "m": "m",
	"n": "n", "p": "p", "s": "s", "t": "t",
	"v": "v", "w": "w", "z": "z", "ɥ": "h",
	"ʁ": "r", "ʃ": "s^", "ʒ": "z^", "ɲ": "gn",
	"ŋ": "ng",
}

// LIAPHONToIPA is the inverse table. Inversion walks the IPA keys in
// sorted order so aliases resolve deterministically: both c and k map to
// LIAPHON k, and k wins the inverse entry.
var LIAPHONToIPA = func() map[string]string {
	keys := make([]string, 0, len(IPAToLIAPHON))
	for ipa := range IPAToLIAPHON {
		keys = append(keys, ipa)
	}
	sort.Strings(keys)
	inv := make(map[string]string, len(keys))
	for _, ipa := range keys {
		inv[IPAToLIAPHON[ipa]] = ipa
	}
	return inv
}()

// ToIPA concatenates the IPA equivalents of a LIAPHON token sequence.
// Unmapped tokens pass through unchanged.
func ToIPA(liaphon []string) string {
	var b strings.Builder
	for _, tok := range liaphon {
		if ipa, ok := LIAPHONToIPA[tok]; ok {
			b.WriteString(ipa)
		} else {
			b.WriteString(tok)
		}
	}
	return b.String()
}

// FromIPA splits an IPA string into LIAPHON tokens. Matching operates on
// grapheme clusters: a base rune plus any trailing combining marks is
// looked up as a whole key, so nasal vowels like ɔ̃ stay intact. Unmapped
// clusters pass through unchanged.
func FromIPA(ipa string) []string {
	var out []string
	for i := 0; i < len(ipa); {
		_, size := utf8.DecodeRuneInString(ipa[i:])
		end := i + size
		for end < len(ipa) {
			m, msize := utf8.DecodeRuneInString(ipa[end:])
			if !unicode.Is(unicode.Mn, m) {
				break
			}
			end += msize
		}
		cluster := ipa[i:end]
		if tok, ok := IPAToLIAPHON[cluster]; ok {
			out = append(out, tok)
		} else {
			out = append(out, cluster)
		}
		i = end
	}
	return out
}
