package types

import (
	"fmt"
	"strings"
)

// Pair is a normalized trading pair.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair normalizes and validates a base/quote pair. Both legs must be
// non-empty asset codes.
func ParsePair(base, quote string) (Pair, error) {
	b := strings.ToUpper(strings.TrimSpace(base))
	q := strings.ToUpper(strings.TrimSpace(quote))
	if b == "" || q == "" {
		return Pair{}, fmt.Errorf("invalid pair %q/%q", base, quote)
	}
	return Pair{Base: b, Quote: q}, nil
}

// String returns the canonical BASE-QUOTE spelling.
func (p Pair) String() string {
	return p.Base + "-" + p.Quote
}

// SymbolVariants returns the ordered symbol spellings to try against a
// venue for a pair: venue-specific conventions first, then the generic
// dash, slash and concatenated forms. Kraken spells BTC as XBT; Bitstamp
// uses lowercase concatenation.
func SymbolVariants(venue string, p Pair) []string {
	base, quote := p.Base, p.Quote

	var variants []string
	switch strings.ToLower(venue) {
	case VenueKraken:
		kb := base
		if kb == "BTC" {
			kb = "XBT"
		}
		variants = append(variants, kb+"/"+quote, kb+quote)
	case VenueBitstamp:
		variants = append(variants, strings.ToLower(base+quote))
	}

	variants = append(variants,
		base+"-"+quote,
		base+"/"+quote,
		base+quote,
	)

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
