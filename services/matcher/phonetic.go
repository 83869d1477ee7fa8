package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// soundexDigits maps A..Z to their Soundex class. '0' marks letters that are
// dropped (vowels, H, W, Y). Dropped letters do not separate repeated digits.
const soundexDigits = "01230120022455012623010202"

// Soundex returns the phonetic key of s the way MySQL's SOUNDEX builds it.
// Non-letters are ignored, accents are folded, and the key is not truncated, so whole names are compared rather
// than only their first syllables. Keys shorter than four are padded with '0'.
// A string without letters has an empty key.
func Soundex(s string) string {
	letters := foldLetters(s)
	if len(letters) == 0 {
		return ""
	}

	var key strings.Builder
	key.WriteByte(letters[0])
	last := soundexDigits[letters[0]-'A']

	for _, ch := range letters[1:] {
		digit := soundexDigits[ch-'A']
		if digit != '0' && digit != last {
			key.WriteByte(digit)
			last = digit
		}
	}

	for key.Len() < 4 {
		key.WriteByte('0')
	}
	return key.String()
}

// foldLetters returns the ASCII letters of s upper-cased, with diacritics removed.
func foldLetters(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToUpper(r)
		if r >= 'A' && r <= 'Z' {
			out = append(out, byte(r))
		}
	}
	return out
}
