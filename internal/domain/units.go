package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical unit names
const (
	UnitKilogram   = "kg"
	UnitGram       = "g"
	UnitLiter      = "l"
	UnitMilliliter = "ml"
	UnitPiece      = "unidad"
)

// ErrUnsupportedConversion reports a unit pair with no known factor.
// ConvertChecked still returns the unconverted value alongside it.
var ErrUnsupportedConversion = errors.New("unsupported unit conversion")

// NormalizeUnit lower-cases and trims a unit name
func NormalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// ConvertChecked converts value between units. Unsupported pairs return the
// value unchanged together with ErrUnsupportedConversion.
func ConvertChecked(value float64, from, to string) (float64, error) {
	f, t := NormalizeUnit(from), NormalizeUnit(to)
	if f == t {
		return value, nil
	}

	switch {
	case f == UnitKilogram && t == UnitGram, f == UnitLiter && t == UnitMilliliter:
		return value * 1000, nil
	case f == UnitGram && t == UnitKilogram, f == UnitMilliliter && t == UnitLiter:
		return value / 1000, nil
	}

	return value, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, from, to)
}

// ConvertUnit converts value between units and passes unknown pairs through
func ConvertUnit(value float64, from, to string) float64 {
	converted, _ := ConvertChecked(value, from, to)
	return converted
}
