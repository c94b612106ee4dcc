package normalizer

// Tables holds the replacement tables the normalizer is built from. They are
// part of the configuration surface: callers may supply their own maps to
// extend or override the defaults.
type Tables struct {
	// Abbreviations maps a written abbreviation to its full spoken form.
	Abbreviations map[string]string

	// Locations maps written place names to their spoken pronunciation.
	Locations map[string]string

	// CurrencyUnits maps a currency code (or symbol) to its spoken unit.
	CurrencyUnits map[string]string
}

// DefaultTables returns the built-in tables for the travel domain.
func DefaultTables() Tables {
	return Tables{
		Abbreviations: map[string]string{
			"TP.HCM": "Thành phố Hồ Chí Minh",
			"TP":     "Thành phố",
			"Q.":     "Quận",
			"P.":     "Phường",
			"TT":     "Thành thị",
			"TX":     "Thị xã",
			"km/h":   "ki lô mét một giờ",
			"km":     "ki lô mét",
			"vs":     "so với",
			"etc":    "vân vân",
			"ok":     "ô kê",
			"wifi":   "oai fai",
		},
		Locations: map[string]string{
			"Sapa": "Sa Pa",
			"HN":   "Hà Nội",
			"SG":   "Sài Gòn",
		},
		CurrencyUnits: map[string]string{
			"VND": "đồng",
			"đ":   "đồng",
			"USD": "đô la Mỹ",
			"EUR": "ơ rô",
		},
	}
}
