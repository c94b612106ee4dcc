package normalizer

import (
	"strings"
)

// digitWords maps a single digit to its spoken Vietnamese form.
var digitWords = [...]string{
	"không", "một", "hai", "ba", "bốn", "năm", "sáu", "bảy", "tám", "chín",
}

// scaleWords are the thousand-group scale names, least significant first.
var scaleWords = [...]string{
	"", "nghìn", "triệu", "tỷ", "nghìn tỷ", "triệu tỷ", "tỷ tỷ",
}

// NumberWords converts an integer to its spoken Vietnamese form using the
// standard numeral construction rules: three-digit groups with nghìn/triệu/tỷ
// scales, "lẻ" linking a non-zero unit to a hundreds group with zero tens,
// and the irregular unit readings mốt, tư and lăm.
func NumberWords(n int64) string {
	if n < 0 {
		return "âm " + NumberWords(-n)
	}
	if n == 0 {
		return digitWords[0]
	}

	// Split into three-digit groups, most significant first.
	var groups []int
	for n > 0 {
		groups = append([]int{int(n % 1000)}, groups...)
		n /= 1000
	}

	var parts []string
	for i, g := range groups {
		if g == 0 {
			continue
		}
		w := tripleWords(g, i == 0)
		if scale := scaleWords[len(groups)-1-i]; scale != "" {
			w += " " + scale
		}
		parts = append(parts, w)
	}
	return strings.Join(parts, " ")
}

// tripleWords reads a group of up to three digits. A non-leading group keeps
// its "không trăm" prefix so that inner zero hundreds are voiced, e.g.
// 1000005 reads "một triệu không trăm lẻ năm".
func tripleWords(g int, leading bool) string {
	h, t, u := g/100, (g/10)%10, g%10

	var parts []string
	if h > 0 {
		parts = append(parts, digitWords[h]+" trăm")
	} else if !leading && (t > 0 || u > 0) {
		parts = append(parts, "không trăm")
	}

	switch {
	case t == 0:
		if u > 0 {
			if h > 0 || !leading {
				parts = append(parts, "lẻ", digitWords[u])
			} else {
				parts = append(parts, digitWords[u])
			}
		}
	case t == 1:
		parts = append(parts, "mười")
		switch {
		case u == 5:
			parts = append(parts, "lăm")
		case u > 0:
			parts = append(parts, digitWords[u])
		}
	default:
		parts = append(parts, digitWords[t]+" mươi")
		switch u {
		case 0:
		case 1:
			parts = append(parts, "mốt")
		case 4:
			parts = append(parts, "tư")
		case 5:
			parts = append(parts, "lăm")
		default:
			parts = append(parts, digitWords[u])
		}
	}
	return strings.Join(parts, " ")
}

// DigitsWords spells a run of decimal digits one by one, the way fractional
// parts are read aloud.
func DigitsWords(digits string) string {
	var parts []string
	for _, r := range digits {
		if r < '0' || r > '9' {
			continue
		}
		parts = append(parts, digitWords[r-'0'])
	}
	return strings.Join(parts, " ")
}
