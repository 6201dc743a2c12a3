package model

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Form values arrive as strings, JSON numbers or booleans. The helpers below
// coerce them to a safe value instead of failing.

func text(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// FloatOrNil parses v as a number, accepting a comma as decimal separator.
// Blank, unparsable or non-finite input yields nil.
func FloatOrNil(v any) *float64 {
	s := strings.ReplaceAll(text(v), ",", ".")
	if s == "" {
		return nil
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// NonNegativeOrNil is FloatOrNil with negative values clamped to zero.
func NonNegativeOrNil(v any) *float64 {
	f := FloatOrNil(v)
	if f != nil && *f < 0 {
		zero := 0.0
		return &zero
	}
	return f
}

// IntOrNil parses v as an integer. Blank or unparsable input yields nil.
func IntOrNil(v any) *int64 {
	s := text(v)
	if s == "" {
		return nil
	}
	n, err := cast.ToInt64E(s)
	if err != nil {
		f := FloatOrNil(s)
		if f == nil {
			return nil
		}
		n = int64(*f)
	}
	return &n
}

// IntOr parses v as an integer, falling back to def.
func IntOr(v any, def int) int {
	if n := IntOrNil(v); n != nil {
		return int(*n)
	}
	return def
}

// FlagOrNil parses an on/off flag. Blank input yields nil so that the caller
// can apply its own default.
func FlagOrNil(v any) *bool {
	switch strings.ToLower(text(v)) {
	case "":
		return nil
	case "0", "false", "off", "no", "non":
		f := false
		return &f
	default:
		t := true
		return &t
	}
}

// Flag parses an opt-in flag: only explicit truthy values are true.
func Flag(v any) bool {
	switch strings.ToLower(text(v)) {
	case "1", "true", "on", "yes", "oui":
		return true
	}
	return false
}

// ParseExpiryKind clamps v to DLC or DDM, defaulting to DLC.
func ParseExpiryKind(v any) string {
	if k := strings.ToUpper(text(v)); k == ExpiryDDM {
		return ExpiryDDM
	}
	return ExpiryDLC
}

// Digits keeps only the ASCII digits of a barcode.
func Digits(v any) string {
	var b strings.Builder
	for _, r := range text(v) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
