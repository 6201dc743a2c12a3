// Package units maps free-text purchase units onto a small set of canonical
// units and converts quantities between them.
package units

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unit is a canonical unit token.
type Unit string

// Canonical units.
const (
	Kilogram   Unit = "kg"
	Gram       Unit = "g"
	Litre      Unit = "l"
	Millilitre Unit = "ml"
	Centilitre Unit = "cl"
	Piece      Unit = "pc"
)

// Family groups units that convert into each other.
type Family string

// Unit families.
const (
	Mass   Family = "mass"
	Volume Family = "volume"
	Count  Family = "count"
)

// aliases maps accent-folded, lower-cased tokens to canonical units.
var aliases = map[string]Unit{
	"l": Litre, "litre": Litre, "litres": Litre, "liter": Litre, "liters": Litre,
	"ml": Millilitre, "millilitre": Millilitre, "millilitres": Millilitre, "milliliter": Millilitre,
	"cl": Centilitre, "centilitre": Centilitre, "centilitres": Centilitre,
	"kg": Kilogram, "kilo": Kilogram, "kilogramme": Kilogram, "kilogrammes": Kilogram, "kilogram": Kilogram,
	"g": Gram, "gr": Gram, "gramme": Gram, "grammes": Gram, "gram": Gram,
	"pc": Piece, "pcs": Piece, "piece": Piece, "pieces": Piece, "unite": Piece, "unites": Piece,
	"boite": Piece, "bouteille": Piece, "paquet": Piece, "sachet": Piece, "tranche": Piece,
	"lot": Piece, "barquette": Piece, "rouleau": Piece, "dosette": Piece, "pot": Piece,
}

var families = map[Unit]Family{
	Kilogram: Mass, Gram: Mass,
	Litre: Volume, Millilitre: Volume, Centilitre: Volume,
	Piece: Count,
}

// scale is the size of each unit in the smallest unit of its family. Integer
// factors keep common conversions such as 2 kg -> 2000 g exact.
var scale = map[Unit]float64{
	Gram: 1, Kilogram: 1000,
	Millilitre: 1, Centilitre: 10, Litre: 1000,
	Piece: 1,
}

// fold strips accents. Chained transformers keep state, so each call builds
// its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		return folded
	}
	return s
}

// Normalize maps a free-text unit token to its canonical unit. Unknown tokens
// become Piece. Normalize is idempotent.
func Normalize(token string) Unit {
	u := fold(strings.ToLower(strings.TrimSpace(token)))
	u = strings.TrimRightFunc(u, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if c, ok := aliases[u]; ok {
		return c
	}
	if s, ok := strings.CutSuffix(u, "s"); ok && s != "" {
		if c, ok := aliases[s]; ok {
			return c
		}
	}
	return Piece
}

// FamilyOf returns the family of a unit token.
func FamilyOf(token string) Family {
	return families[Normalize(token)]
}

// Convert converts q from one unit to another. Units of different families,
// and counts, have no defined conversion: q is returned unchanged, i.e. the two
// units are treated as having the same scale.
func Convert(q float64, from, to string) float64 {
	f, t := Normalize(from), Normalize(to)
	if f == t || families[f] != families[t] || families[f] == Count {
		return q
	}
	return q * scale[f] / scale[t]
}

// ToBase converts q to the reference unit of its family: kg, l or pc.
func ToBase(q float64, token string) (float64, Unit) {
	u := Normalize(token)
	switch families[u] {
	case Mass:
		return Convert(q, string(u), string(Kilogram)), Kilogram
	case Volume:
		return Convert(q, string(u), string(Litre)), Litre
	default:
		return q, Piece
	}
}

// PriceLabel is the label of a per-base-unit price for the unit's family.
func PriceLabel(token string) string {
	switch FamilyOf(token) {
	case Mass:
		return "€/kg"
	case Volume:
		return "€/L"
	default:
		return "€/pièce"
	}
}
