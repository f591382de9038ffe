package symbols

// The tracked catalog is fixed and closed: three indices, one crypto asset,
// two semiconductor names, five mega-cap equities. Only these strings ever
// appear as the symbol field on stored entities.
var catalog = []string{
	"SPX",
	"NDX",
	"RUT",
	"BTC",
	"NVDA",
	"AMD",
	"AAPL",
	"MSFT",
	"AMZN",
	"GOOGL",
	"TSLA",
}

var catalogSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(catalog))
	for _, s := range catalog {
		m[s] = struct{}{}
	}
	return m
}()

// Catalog returns the tracked symbols in display order.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// IsTracked reports whether s is a canonical catalog member.
func IsTracked(s string) bool {
	_, ok := catalogSet[s]
	return ok
}
