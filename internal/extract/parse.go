package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRangeRe  = regexp.MustCompile(`[$€£₩¥]?\s*([\d,.]+)\s*[-~]\s*[$€£₩¥]?\s*([\d,.]+)`)
	priceSingleRe = regexp.MustCompile(`([\d,.]+)`)
	moqRe         = regexp.MustCompile(`(\d+)`)
)

// ParsePrice reads a price cell. Ranges like "$10 - $15" or "10~15" yield
// (min, max); a single value yields the same number for both; anything
// unparseable yields (nil, nil).
func ParsePrice(raw string) (*float64, *float64) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if m := priceRangeRe.FindStringSubmatch(raw); m != nil {
		lo, err1 := parseAmount(m[1])
		hi, err2 := parseAmount(m[2])
		if err1 == nil && err2 == nil {
			if hi < lo {
				lo, hi = hi, lo
			}
			return &lo, &hi
		}
	}

	if m := priceSingleRe.FindStringSubmatch(raw); m != nil {
		if v, err := parseAmount(m[1]); err == nil {
			hi := v
			return &v, &hi
		}
	}
	return nil, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Trim(s, ".")
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

// ParseMOQ reads the first integer run from a quantity cell, ignoring
// thousands separators. "1,000 pcs" yields 1000; no digits yields nil.
func ParseMOQ(raw string) *int {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := moqRe.FindString(raw)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &v
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₩": "KRW",
	"¥": "JPY",
}

func detectCurrency(raw string) string {
	for sym, code := range currencySymbols {
		if strings.Contains(raw, sym) {
			return code
		}
	}
	return ""
}
