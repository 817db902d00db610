package extract

import "strings"

var currencyTokens = []string{"$", "€", "£", "₩", "¥", "usd", "eur", "krw"}

const heuristicNameChars = 50

// heuristicCandidates is the no-AI text path: every line carrying a
// currency token becomes one candidate, name taken from the leading
// characters and price parsed from the whole line. Crude, but it keeps
// scoring useful when no API key is configured.
func heuristicCandidates(text string, limit int) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !hasCurrencyToken(line) {
			continue
		}

		name := line
		if idx := strings.IndexAny(name, "$€£₩¥"); idx > 0 {
			name = name[:idx]
		}
		name = strings.TrimSpace(strings.Trim(name, " -:\t"))
		if len(name) > heuristicNameChars {
			name = name[:heuristicNameChars]
		}
		if name == "" {
			continue
		}

		c := Candidate{Name: name, Currency: detectCurrency(line)}
		c.PriceMin, c.PriceMax = ParsePrice(line)

		candidates = append(candidates, c)
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}
	return candidates
}

func hasCurrencyToken(line string) bool {
	lower := strings.ToLower(line)
	for _, tok := range currencyTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
