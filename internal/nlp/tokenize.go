package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics, so "Recuérdame" and "recuerdame"
// compare equal. "ñ" folds to "n".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits folded text into lowercase ASCII word and number tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// Features returns the classifier features of text: every non-numeric
// token plus each adjacent pair joined by "_".
func Features(text string) []string {
	var words []string
	for _, tok := range Tokenize(text) {
		if isDigits(tok) {
			continue
		}
		words = append(words, tok)
	}
	if len(words) == 0 {
		return nil
	}

	features := make([]string, 0, 2*len(words)-1)
	features = append(features, words...)
	for i := 0; i+1 < len(words); i++ {
		features = append(features, words[i]+"_"+words[i+1])
	}
	return features
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// word is a whitespace-delimited piece of the original message. Raw keeps
// the user's spelling for titles; Norm is folded and stripped of edge
// punctuation and dots for matching.
type word struct {
	Raw  string
	Norm string
}

const edgePunct = "¿?¡!,;.\"'()[]{}…:"

// splitWords breaks text on whitespace and trims punctuation around each
// piece. Pieces that are only punctuation are dropped.
func splitWords(text string) []word {
	var words []word
	for _, field := range strings.Fields(text) {
		raw := strings.Trim(field, edgePunct)
		if raw == "" {
			continue
		}
		n := strings.ReplaceAll(Fold(raw), ".", "")
		if n == "" {
			continue
		}
		words = append(words, word{Raw: raw, Norm: n})
	}
	return words
}
