package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reAmountMillions = regexp.MustCompile(`(?i)([\d.,]+)\s*(?:millones|millón|millon)`)
	reAmountMil      = regexp.MustCompile(`(?i)([\d.,]+)\s*mil\b`)
	reAmountDollar   = regexp.MustCompile(`\$\s*([\d.,]+)`)
	reAmountGrouped  = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?\b`)
	reAmountDecimal  = regexp.MustCompile(`\b\d+,\d{1,2}\b`)
	// Four digits minimum so counts and hectare figures stay out.
	reAmountBare = regexp.MustCompile(`\b\d{4,9}\b`)
)

// ParseAmount reads one monetary expression: optional $ sign, Argentinian
// separators, optional mil / millones multiplier.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	mult := 1.0
	if m := reAmountMillions.FindStringSubmatch(s); m != nil {
		s, mult = m[1], 1e6
	} else if m := reAmountMil.FindStringSubmatch(s); m != nil {
		s, mult = m[1], 1e3
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	n, ok := parseNumber(s)
	if !ok {
		return 0, false
	}
	return n * mult, true
}

// scanAmounts collects monetary values, most specific pattern first so the
// grouped-number pattern cannot steal the digits of a multiplier form.
// claimed holds the byte ranges the date scanner already consumed, so a year
// inside "15/03/2024" is never read as money.
func scanAmounts(text string, claimed spanSet) []float64 {
	var out []float64
	spans := append(spanSet(nil), claimed...)

	scan := func(re *regexp.Regexp, mult float64, group int) {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if spans.overlaps(m[0], m[1]) {
				continue
			}
			lo, hi := m[0], m[1]
			if group > 0 {
				lo, hi = m[2*group], m[2*group+1]
			}
			if n, ok := parseNumber(text[lo:hi]); ok {
				spans.add(m[0], m[1])
				out = append(out, n*mult)
			}
		}
	}

	scan(reAmountMillions, 1e6, 1)
	scan(reAmountMil, 1e3, 1)
	scan(reAmountDollar, 1, 1)
	scan(reAmountGrouped, 1, 0)
	scan(reAmountDecimal, 1, 0)
	scan(reAmountBare, 1, 0)
	return out
}

// parseNumber applies the separator rules: both separators present means
// dot groups thousands and comma marks decimals; a lone comma with at most
// two trailing digits is a decimal comma; otherwise separators group
// thousands.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		idx := strings.LastIndex(s, ",")
		if len(s)-idx-1 <= 2 {
			s = strings.ReplaceAll(s[:idx], ",", "") + "." + s[idx+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		s = strings.ReplaceAll(s, ".", "")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
