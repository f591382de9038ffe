package symbols

import (
	"strings"

	domsvc "Conflux/internal/domain/service"
)

// Normalizer resolves raw instrument mentions (tickers, company names,
// futures notation) to canonical tracked symbols. Lookup is pure,
// case-insensitive and whitespace-trimmed; unmatched mentions return
// ok=false and callers discard them silently.
type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (n *Normalizer) Normalize(text string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return "", false
	}
	if IsTracked(s) {
		return s, true
	}
	if c, ok := aliases[s]; ok {
		return c, true
	}
	// futures contract marker: "/ES" resolves like "ES"
	if strings.HasPrefix(s, "/") {
		stripped := strings.TrimSpace(s[1:])
		if IsTracked(stripped) {
			return stripped, true
		}
		if c, ok := aliases[stripped]; ok {
			return c, true
		}
	}
	return "", false
}

func (n *Normalizer) Catalog() []string { return Catalog() }

var _ domsvc.Normalizer = (*Normalizer)(nil)
