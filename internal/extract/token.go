// internal/extract/token.go
package extract

import (
	"strings"
	"unicode"
)

// Token is a single word of the query text. Term is the lowercased form
// used for matching; Start and End are byte offsets into the original text
// so candidates can point back at exactly what the user wrote.
type Token struct {
	Term     string
	Raw      string
	Position int
	Start    int
	End      int
}

// Tokenize splits text into word tokens. A word is a maximal run of
// letters and digits; everything else separates tokens and is dropped.
func Tokenize(text string) []Token {
	var tokens []Token
	var start int
	var current []rune
	inside := false

	pos := 0
	byteOffset := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if !inside {
				start = byteOffset
				inside = true
			}
			current = append(current, r)
		} else if inside {
			raw := string(current)
			tokens = append(tokens, Token{
				Term:     strings.ToLower(raw),
				Raw:      raw,
				Position: pos,
				Start:    start,
				End:      byteOffset,
			})
			pos++
			current = current[:0]
			inside = false
		}
		byteOffset += len(string(r))
	}
	if inside {
		raw := string(current)
		tokens = append(tokens, Token{
			Term:     strings.ToLower(raw),
			Raw:      raw,
			Position: pos,
			Start:    start,
			End:      byteOffset,
		})
	}
	return tokens
}
