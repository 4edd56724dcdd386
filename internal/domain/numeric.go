package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var decimalPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ExtractDecimal performs locale-tolerant numeric extraction: comma or dot is
// accepted as the decimal separator and the first signed decimal substring
// wins. Returns nil when no number is present, so an unparseable raw value
// becomes a null field instead of a bogus zero.
func ExtractDecimal(raw string) *float64 {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	match := decimalPattern.FindString(normalized)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

// Unit token tables are ordered: "кг" must be tried before "г" because the
// latter is a substring of the former.
var weightUnits = []struct {
	token  string
	factor float64
}{
	{"кг", 1000},
	{"kg", 1000},
	{"килограмм", 1000},
	{"грамм", 1},
	{"гр", 1},
	{"gram", 1},
	{"г", 1},
}

var lengthUnits = []struct {
	token  string
	factor float64
}{
	{"мм", 1},
	{"mm", 1},
	{"миллиметр", 1},
	{"сантиметр", 10},
	{"см", 10},
	{"cm", 10},
	{"centimet", 10},
}

// WeightToGrams converts a raw supplier weight string ("1,2 кг", "350 г") to
// grams. Without a recognizable unit the number is ambiguous and nil is
// returned.
func WeightToGrams(raw string) *int {
	return convertWithUnits(raw, weightUnits)
}

// LengthToMillimeters converts a raw dimension string ("25 см", "140 мм") to
// millimeters, nil when the unit is missing.
func LengthToMillimeters(raw string) *int {
	return convertWithUnits(raw, lengthUnits)
}

func convertWithUnits(raw string, units []struct {
	token  string
	factor float64
}) *int {
	text := strings.ToLower(strings.TrimSpace(raw))
	number := ExtractDecimal(text)
	if number == nil {
		return nil
	}
	for _, unit := range units {
		if strings.Contains(text, unit.token) {
			value := int(math.Round(*number * unit.factor))
			return &value
		}
	}
	return nil
}
