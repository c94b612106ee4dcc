package normalizer

import (
	"testing"
)

func TestNumberWords(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want string
	}{
		{"zero", 0, "không"},
		{"single digit", 5, "năm"},
		{"ten", 10, "mười"},
		{"teen", 15, "mười lăm"},
		{"teen with one", 11, "mười một"},
		{"twenty one uses mốt", 21, "hai mươi mốt"},
		{"twenty four uses tư", 24, "hai mươi tư"},
		{"twenty five uses lăm", 25, "hai mươi lăm"},
		{"round tens", 50, "năm mươi"},
		{"hundred twenty three", 123, "một trăm hai mươi ba"},
		{"linking word", 105, "một trăm lẻ năm"},
		{"linking word with one", 101, "một trăm lẻ một"},
		{"round hundred", 500, "năm trăm"},
		{"thousand", 1000, "một nghìn"},
		{"hundred thousand", 100000, "một trăm nghìn"},
		{"mixed thousands", 123456, "một trăm hai mươi ba nghìn bốn trăm năm mươi sáu"},
		{"million", 1000000, "một triệu"},
		{"inner zero group", 1000005, "một triệu không trăm lẻ năm"},
		{"two and a half million", 2500000, "hai triệu năm trăm nghìn"},
		{"billion", 1000000000, "một tỷ"},
		{"negative", -7, "âm bảy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NumberWords(tt.n); got != tt.want {
				t.Errorf("NumberWords(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestDigitsWords(t *testing.T) {
	tests := []struct {
		digits string
		want   string
	}{
		{"14", "một bốn"},
		{"5", "năm"},
		{"007", "không không bảy"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DigitsWords(tt.digits); got != tt.want {
			t.Errorf("DigitsWords(%q) = %q, want %q", tt.digits, got, tt.want)
		}
	}
}
