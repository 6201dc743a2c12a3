package model

import "github.com/shopspring/decimal"

// Movement types.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// Movement is an append-only record of a quantity change on a lot.
type Movement struct {
	ID             int64               `json:"id"`
	LotID          int64               `json:"lot_id"`
	Type           string              `json:"type"`
	Qty            float64             `json:"qty"`
	TS             string              `json:"ts"`
	Note           string              `json:"note,omitempty"`
	ReasonCode     string              `json:"reason_code,omitempty"`
	PriceAllocated decimal.NullDecimal `json:"price_allocated"`
	UnitInput      string              `json:"unit_input,omitempty"`
	FactorToPivot  float64             `json:"factor_to_pivot"`
	LocationFromID *int64              `json:"location_from_id,omitempty"`
	LocationToID   *int64              `json:"location_to_id,omitempty"`
}
