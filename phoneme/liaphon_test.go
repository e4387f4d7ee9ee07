package phoneme

import (
	"reflect"
	"testing"
)

func TestFromIPA_Bonjour(t *testing.T) {
	got := FromIPA("bɔ̃ʒuʁ")
	want := []string{"b", "o~", "z^", "u", "r"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromIPA = %v, want %v", got, want)
	}
}

func TestFromIPA_NasalVowelsStayWhole(t *testing.T) {
	// Every nasal vowel is a base rune plus a combining tilde; byte- or
	// rune-wise splitting would break them apart.
	for _, tc := range []struct{ ipa, lia string }{
		{"ɑ̃", "a~"},
		{"ɛ̃", "e~"},
		{"ɔ̃", "o~"},
		{"œ̃", "x~"},
	} {
		got := FromIPA(tc.ipa)
		if len(got) != 1 || got[0] != tc.lia {
			t.Errorf("FromIPA(%q) = %v, want [%s]", tc.ipa, got, tc.lia)
		}
	}
}

func TestFromIPA_Space(t *testing.T) {
	got := FromIPA("a b")
	want := []string{"a", "_", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromIPA = %v, want %v", got, want)
	}
}

func TestFromIPA_UnmappedPassthrough(t *testing.T) {
	got := FromIPA("aXb")
	want := []string{"a", "X", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromIPA = %v, want %v", got, want)
	}
}

func TestToIPA(t *testing.T) {
	got := ToIPA([]string{"b", "o~", "z^", "u", "r"})
	if got != "bɔ̃ʒuʁ" {
		t.Errorf("ToIPA = %q, want %q", got, "bɔ̃ʒuʁ")
	}
}

func TestToIPA_UnmappedPassthrough(t *testing.T) {
	got := ToIPA([]string{"a", "??", "b"})
	if got != "a??b" {
		t.Errorf("ToIPA = %q, want %q", got, "a??b")
	}
}

func TestRoundTrip_AllGraphemes(t *testing.T) {
	for ipa, lia := range IPAToLIAPHON {
		tokens := FromIPA(ipa)
		if len(tokens) != 1 || tokens[0] != lia {
			t.Errorf("FromIPA(%q) = %v, want [%s]", ipa, tokens, lia)
			continue
		}
		if LIAPHONToIPA[lia] != ipa {
			// Alias: c and k share token k; only one inverse survives.
			continue
		}
		if back := ToIPA(tokens); back != ipa {
			t.Errorf("ToIPA(FromIPA(%q)) = %q", ipa, back)
		}
	}
}

func TestTablesAreInverse(t *testing.T) {
	for lia, ipa := range LIAPHONToIPA {
		if IPAToLIAPHON[ipa] != lia {
			t.Errorf("IPAToLIAPHON[%q] = %q, want %q", ipa, IPAToLIAPHON[ipa], lia)
		}
	}
	// The c/k alias resolves to k.
	if LIAPHONToIPA["k"] != "k" {
		t.Errorf("LIAPHONToIPA[k] = %q, want k", LIAPHONToIPA["k"])
	}
}
