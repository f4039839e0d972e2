package aspect

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Filter returns the candidates whose display text (or key, when there is no
// display text) contains query, ignoring case and Unicode normalisation
// differences. An empty query returns every candidate.
func (s *Selection) Filter(query string) []Option {
	if query == "" {
		return s.Candidates()
	}
	fold := cases.Fold()
	needle := fold.String(norm.NFC.String(query))
	var out []Option
	for _, o := range s.candidates {
		text := o.Display
		if text == "" {
			text = o.Key
		}
		if strings.Contains(fold.String(norm.NFC.String(text)), needle) {
			out = append(out, o)
		}
	}
	return out
}
