// Package lang classifies query text into the closed language set the
// corpus carries: english, hindi, or hinglish.
package lang

import (
	"strings"
	"unicode"

	"github.com/cfirst/finbot/engine/domain"
)

// Romanized-Hindi marker words. A Latin-script query containing any of
// these is classified as hinglish rather than english.
var hinglishMarkers = map[string]bool{
	"kya": true, "kaise": true, "kyu": true, "kyun": true, "kab": true,
	"kahan": true, "kaun": true, "kitna": true, "kitne": true, "kitni": true,
	"hai": true, "hain": true, "nahi": true, "nahin": true, "mera": true,
	"meri": true, "mere": true, "apna": true, "paisa": true, "paise": true,
	"karna": true, "karne": true, "chahiye": true, "batao": true,
	"matlab": true, "samajh": true, "accha": true, "theek": true,
}

// Detect classifies text. Any Devanagari letter makes the query hindi;
// otherwise romanized-Hindi markers make it hinglish; the default is
// english. Pure function of its input.
func Detect(text string) domain.Language {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return domain.LangHindi
		}
	}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, "?.,!;:'\"()-")
		if hinglishMarkers[w] {
			return domain.LangHinglish
		}
	}
	return domain.LangEnglish
}
