package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

var (
	reDateNumeric = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	reDateLong    = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+([a-záéíóú]+)\s+de\s+(\d{4})\b`)
	reDateShort   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+([a-záéíóú]+)\b`)
	reDateWord    = regexp.MustCompile(`(?i)\b(hoy|mañana|ayer)\b`)
)

// ParseDate reads one Spanish date expression. Accepts 15/03/2024, 15-03-24,
// "15 de marzo de 2024", "15 de marzo" (current year), hoy/mañana/ayer, and
// the ISO form models tend to emit.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, true
	}
	if m := reDateWord.FindStringSubmatch(s); m != nil && len(m[0]) == len(s) {
		return wordDate(m[1], now), true
	}
	if m := reDateNumeric.FindStringSubmatch(s); m != nil {
		return numericDate(m)
	}
	if m := reDateLong.FindStringSubmatch(s); m != nil {
		return longDate(m)
	}
	if m := reDateShort.FindStringSubmatch(s); m != nil {
		return shortDate(m, now)
	}
	return time.Time{}, false
}

// scanDates collects every date expression in the text, in order, without
// overlapping captures. The claimed spans are returned so the amount scanner
// can skip digits that belong to a date.
func scanDates(text string, now time.Time) ([]time.Time, spanSet) {
	var out []time.Time
	var spans spanSet

	for _, m := range reDateNumeric.FindAllStringSubmatchIndex(text, -1) {
		if spans.overlaps(m[0], m[1]) {
			continue
		}
		sub := reDateNumeric.FindStringSubmatch(text[m[0]:m[1]])
		if d, ok := numericDate(sub); ok {
			spans.add(m[0], m[1])
			out = append(out, d)
		}
	}
	for _, m := range reDateLong.FindAllStringSubmatchIndex(text, -1) {
		if spans.overlaps(m[0], m[1]) {
			continue
		}
		sub := reDateLong.FindStringSubmatch(text[m[0]:m[1]])
		if d, ok := longDate(sub); ok {
			spans.add(m[0], m[1])
			out = append(out, d)
		}
	}
	for _, m := range reDateShort.FindAllStringSubmatchIndex(text, -1) {
		if spans.overlaps(m[0], m[1]) {
			continue
		}
		sub := reDateShort.FindStringSubmatch(text[m[0]:m[1]])
		if d, ok := shortDate(sub, now); ok {
			spans.add(m[0], m[1])
			out = append(out, d)
		}
	}
	for _, m := range reDateWord.FindAllStringSubmatchIndex(text, -1) {
		if spans.overlaps(m[0], m[1]) {
			continue
		}
		spans.add(m[0], m[1])
		out = append(out, wordDate(strings.ToLower(text[m[0]:m[1]]), now))
	}
	return out, spans
}

func wordDate(word string, now time.Time) time.Time {
	day := truncateDay(now)
	switch strings.ToLower(word) {
	case "mañana":
		return day.AddDate(0, 0, 1)
	case "ayer":
		return day.AddDate(0, 0, -1)
	}
	return day
}

func numericDate(m []string) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	return makeDate(year, time.Month(month), day)
}

func longDate(m []string) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[3])
	return makeDate(year, month, day)
}

func shortDate(m []string, now time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	return makeDate(now.Year(), month, day)
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject rollover like 31/02.
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// spanSet tracks claimed byte ranges so a later, looser pattern cannot
// re-capture text a stricter one already consumed.
type spanSet [][2]int

func (s *spanSet) add(lo, hi int) { *s = append(*s, [2]int{lo, hi}) }

func (s spanSet) overlaps(lo, hi int) bool {
	for _, sp := range s {
		if lo < sp[1] && hi > sp[0] {
			return true
		}
	}
	return false
}
