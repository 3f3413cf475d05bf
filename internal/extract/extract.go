package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Hints is what the extractor managed to pull out of one message. Hints
// feed the model prompt as context; they never bypass the model's own
// argument construction.
type Hints struct {
	Dates    []time.Time
	Amounts  []float64
	Field    string
	Client   string
	WorkType string
	Crop     string
	Quoted   []string
}

var workTypeVocab = []struct{ keyword, canonical string }{
	{"siembra", "siembra"}, {"sembrar", "siembra"}, {"sembré", "siembra"},
	{"cosecha", "cosecha"}, {"cosechar", "cosecha"}, {"coseché", "cosecha"},
	{"pulverización", "pulverización"}, {"pulverizacion", "pulverización"},
	{"pulverizar", "pulverización"}, {"fumigar", "pulverización"}, {"fumigación", "pulverización"},
	{"fertilización", "fertilización"}, {"fertilizacion", "fertilización"}, {"fertilizar", "fertilización"},
	{"labranza", "labranza"},
	{"arado", "arado"}, {"arar", "arado"},
	{"rastra", "rastra"},
}

var reCrop = regexp.MustCompile(`(?i)\b(soja|maíz|maiz|trigo|girasol|sorgo|cebada|avena)\b`)

var (
	reQuoted     = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	reFieldName  = regexp.MustCompile(`(?i)\b(?:campo|lote)\s+(?:de(?:l)?\s+)?(.{1,60})`)
	reClientName = regexp.MustCompile(`(?i)\bcliente\s+(?:de(?:l)?\s+)?(.{1,60})`)
)

// Words that end a name window when they appear lowercase mid-phrase.
var stopWords = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "de": true, "del": true,
	"para": true, "con": true, "en": true, "a": true, "por": true, "que": true,
	"y": true, "hoy": true, "mañana": true, "ayer": true,
}

// Extract runs every extractor over the message. now anchors the relative
// date words.
func Extract(text string, now time.Time) Hints {
	dates, dateSpans := scanDates(text, now)
	h := Hints{
		Dates:   dates,
		Amounts: scanAmounts(text, dateSpans),
		Quoted:  scanQuoted(text),
	}
	h.Field = nameWindow(reFieldName, text)
	h.Client = nameWindow(reClientName, text)
	h.WorkType = matchWorkType(text)
	h.Crop = matchCrop(text)
	return h
}

func (h Hints) Empty() bool {
	return len(h.Dates) == 0 && len(h.Amounts) == 0 && h.Field == "" &&
		h.Client == "" && h.WorkType == "" && h.Crop == "" && len(h.Quoted) == 0
}

// Block renders the hints as a prompt fragment. Spanish because the model's
// working language for this traffic is Spanish.
func (h Hints) Block() string {
	if h.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Datos detectados en el mensaje (orientativos, verificá contra el texto):\n")
	for _, d := range h.Dates {
		fmt.Fprintf(&b, "- fecha: %s\n", d.Format("2006-01-02"))
	}
	for _, a := range h.Amounts {
		fmt.Fprintf(&b, "- monto: %.2f\n", a)
	}
	if h.Field != "" {
		fmt.Fprintf(&b, "- campo: %s\n", h.Field)
	}
	if h.Client != "" {
		fmt.Fprintf(&b, "- cliente: %s\n", h.Client)
	}
	if h.WorkType != "" {
		fmt.Fprintf(&b, "- tipo de trabajo: %s\n", h.WorkType)
	}
	if h.Crop != "" {
		fmt.Fprintf(&b, "- cultivo: %s\n", h.Crop)
	}
	for _, q := range h.Quoted {
		fmt.Fprintf(&b, "- texto citado: %s\n", q)
	}
	return strings.TrimRight(b.String(), "\n")
}

func scanQuoted(text string) []string {
	var out []string
	for _, m := range reQuoted.FindAllStringSubmatch(text, -1) {
		q := m[1]
		if q == "" {
			q = m[2]
		}
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// nameWindow takes the words after a keyword, stopping at punctuation,
// digits, or a lowercase stop word, then trims trailing stop words. A
// capitalized article stays because it is part of the proper name.
func nameWindow(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	rest := m[1]
	if cut := strings.IndexAny(rest, ",.;:\n\"'"); cut >= 0 {
		rest = rest[:cut]
	}

	var kept []string
	for _, w := range strings.Fields(rest) {
		if startsWithDigit(w) {
			break
		}
		if stopWords[w] && len(kept) > 0 {
			break
		}
		if stopWords[w] && len(kept) == 0 {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 4 {
			break
		}
	}
	for len(kept) > 0 && stopWords[strings.ToLower(kept[len(kept)-1])] {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, " ")
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func matchWorkType(text string) string {
	lower := strings.ToLower(text)
	for _, wt := range workTypeVocab {
		if strings.Contains(lower, wt.keyword) {
			return wt.canonical
		}
	}
	return ""
}

func matchCrop(text string) string {
	m := reCrop.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	crop := strings.ToLower(m[1])
	if crop == "maiz" {
		crop = "maíz"
	}
	return crop
}
