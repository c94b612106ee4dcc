// Package normalizer rewrites raw Vietnamese text into a speakable canonical
// form: abbreviations, currency amounts, dates and bare numbers are expanded
// into words, and symbols with no spoken representation are removed.
//
// Normalization is total and idempotent. A pattern the pipeline does not
// recognize is left untouched rather than failing the request.
package normalizer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// replacement is a single table-driven rewrite, applied on word boundaries.
type replacement struct {
	written string
	spoken  string
}

// Normalizer applies the canonicalization pipeline. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	words      []replacement // abbreviations + locations, longest first
	units      map[string]string
	amountRe   *regexp.Regexp
	bareCodes  []replacement // currency codes without an amount
}

// New returns a normalizer built from the default travel-domain tables.
func New() *Normalizer {
	return NewWithTables(DefaultTables())
}

// NewWithTables returns a normalizer built from custom tables. Nil maps fall
// back to the corresponding default table.
func NewWithTables(t Tables) *Normalizer {
	def := DefaultTables()
	if t.Abbreviations == nil {
		t.Abbreviations = def.Abbreviations
	}
	if t.Locations == nil {
		t.Locations = def.Locations
	}
	if t.CurrencyUnits == nil {
		t.CurrencyUnits = def.CurrencyUnits
	}

	n := &Normalizer{units: t.CurrencyUnits}

	for written, spoken := range t.Abbreviations {
		n.words = append(n.words, replacement{written, spoken})
	}
	for written, spoken := range t.Locations {
		n.words = append(n.words, replacement{written, spoken})
	}
	// Longest first so TP.HCM wins over TP; ties broken lexicographically
	// to keep the pipeline deterministic.
	sort.Slice(n.words, func(i, j int) bool {
		if len(n.words[i].written) != len(n.words[j].written) {
			return len(n.words[i].written) > len(n.words[j].written)
		}
		return n.words[i].written < n.words[j].written
	})

	var codes []string
	for code := range t.CurrencyUnits {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if len(codes[i]) != len(codes[j]) {
			return len(codes[i]) > len(codes[j])
		}
		return codes[i] < codes[j]
	})
	alts := make([]string, 0, len(codes))
	for _, code := range codes {
		alt := regexp.QuoteMeta(code)
		if isASCIIWord(code) {
			alt += `\b`
		}
		alts = append(alts, alt)
		if isASCIIWord(code) {
			n.bareCodes = append(n.bareCodes, replacement{code, t.CurrencyUnits[code]})
		}
	}
	n.amountRe = regexp.MustCompile(`(\d+(?:[.,]\d+)*)\s*(` + strings.Join(alts, "|") + `)`)

	return n
}

// Normalize runs the full pipeline. Stage order matters: later stages assume
// earlier ones ran (currency must see abbreviations expanded, number
// expansion must run after dates so it only sees bare numbers).
func (n *Normalizer) Normalize(raw string) string {
	s := norm.NFC.String(raw)
	s = collapseSpace(s)
	s = n.ExpandAbbreviations(s)
	s = n.ExpandCurrency(s)
	s = n.ExpandDateTime(s)
	s = n.ExpandNumbers(s)
	s = n.CleanPunctuation(s)
	return s
}

// ExpandAbbreviations rewrites known abbreviations and place names to their
// spoken form. Unknown abbreviations pass through unchanged.
func (n *Normalizer) ExpandAbbreviations(s string) string {
	for _, r := range n.words {
		s = replaceWord(s, r.written, r.spoken)
	}
	return s
}

// ExpandCurrency rewrites "<amount> <code>" into the fully spelled amount
// plus the spoken currency unit, then voices any remaining bare codes.
func (n *Normalizer) ExpandCurrency(s string) string {
	matches := n.amountRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) > 0 {
		var b strings.Builder
		prev := 0
		for _, m := range matches {
			// The currency code must end on a word boundary; \b cannot
			// express that for đ.
			if !boundaryAt(s, m[1]) {
				continue
			}
			words, ok := amountWords(s[m[2]:m[3]])
			if !ok {
				continue
			}
			b.WriteString(s[prev:m[0]])
			b.WriteString(words)
			b.WriteString(" ")
			b.WriteString(n.units[s[m[4]:m[5]]])
			prev = m[1]
		}
		b.WriteString(s[prev:])
		s = b.String()
	}
	for _, r := range n.bareCodes {
		s = replaceWord(s, r.written, r.spoken)
	}
	return s
}

var (
	fullDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	clockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ExpandDateTime rewrites DD/MM/YYYY, DD/MM and HH:MM patterns into their
// spoken phrases. Out-of-range values are left as-is for the number stage.
func (n *Normalizer) ExpandDateTime(s string) string {
	s = fullDateRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := fullDateRe.FindStringSubmatch(m)
		day, _ := strconv.Atoi(sub[1])
		month, _ := strconv.Atoi(sub[2])
		year, _ := strconv.Atoi(sub[3])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return m
		}
		return "ngày " + NumberWords(int64(day)) +
			" tháng " + monthWords(month) +
			" năm " + NumberWords(int64(year))
	})
	s = dayMonthRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := dayMonthRe.FindStringSubmatch(m)
		day, _ := strconv.Atoi(sub[1])
		month, _ := strconv.Atoi(sub[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return m
		}
		return "ngày " + NumberWords(int64(day)) + " tháng " + monthWords(month)
	})
	s = clockRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := clockRe.FindStringSubmatch(m)
		hour, _ := strconv.Atoi(sub[1])
		minute, _ := strconv.Atoi(sub[2])
		if hour > 23 || minute > 59 {
			return m
		}
		out := NumberWords(int64(hour)) + " giờ"
		if minute > 0 {
			out += " " + NumberWords(int64(minute)) + " phút"
		}
		return out
	})
	return s
}

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ExpandNumbers converts remaining bare integers and decimals to words.
// Numbers too large to parse stay literal.
func (n *Normalizer) ExpandNumbers(s string) string {
	return numberRe.ReplaceAllStringFunc(s, func(m string) string {
		words, ok := amountWords(m)
		if !ok {
			return m
		}
		return words
	})
}

var punctSpacingRe = regexp.MustCompile(`\s*([,.!?;:])\s*`)

// CleanPunctuation strips symbols with no spoken representation, normalizes
// spacing around the punctuation that remains and collapses whitespace.
func (n *Normalizer) CleanPunctuation(s string) string {
	s = strings.ReplaceAll(s, "%", " phần trăm")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			return r
		case strings.ContainsRune(",.!?;:-", r):
			return r
		}
		return ' '
	}, s)
	s = punctSpacingRe.ReplaceAllString(s, "$1 ")
	return collapseSpace(s)
}

// monthWords reads a month number; month four is conventionally "tư".
func monthWords(month int) string {
	if month == 4 {
		return "tư"
	}
	return NumberWords(int64(month))
}

// amountWords parses a digit string with optional separators into words.
// Separator groups of exactly three digits are thousands separators; a final
// shorter or longer group is a decimal part read digit by digit.
func amountWords(s string) (string, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(parts) == 0 {
		return "", false
	}

	intDigits := parts[0]
	fraction := ""
	for i, p := range parts[1:] {
		if len(p) == 3 && fraction == "" {
			intDigits += p
			continue
		}
		// Only the last group may be a decimal part.
		if i != len(parts)-2 || fraction != "" {
			return "", false
		}
		fraction = p
	}

	v, err := strconv.ParseInt(intDigits, 10, 64)
	if err != nil {
		return "", false
	}
	out := NumberWords(v)
	if fraction != "" {
		out += " phẩy " + DigitsWords(fraction)
	}
	return out, true
}

// replaceWord replaces occurrences of old that sit on word boundaries.
// A boundary exists at the string edges and next to any rune that is not a
// letter or digit; a trailing non-letter in old (like the dot in "Q.") acts
// as its own boundary.
func replaceWord(s, old, spoken string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		j := strings.Index(s[i:], old)
		if j < 0 {
			break
		}
		j += i
		end := j + len(old)
		if boundaryBefore(s, j) && boundaryAfter(s, end, old) {
			b.WriteString(s[i:j])
			b.WriteString(spoken)
			// "Q.1" expands to "Quận 1", not "Quận1": the dot in the
			// abbreviation was the only separator.
			if !boundaryAt(s, end) {
				b.WriteString(" ")
			}
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[j:])
		b.WriteString(s[i : j+size])
		i = j + size
	}
	b.WriteString(s[i:])
	return b.String()
}

func boundaryAt(s string, at int) bool {
	if at >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[at:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryBefore(s string, at int) bool {
	if at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:at])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, at int, old string) bool {
	last, _ := utf8.DecodeLastRuneInString(old)
	if !unicode.IsLetter(last) && !unicode.IsDigit(last) {
		return true
	}
	if at >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[at:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
