package model

import (
	"strings"

	"github.com/domovra/domovra/internal/units"
)

// Product is a catalog entry that lots are stocked against.
type Product struct {
	ID                     int64    `json:"id"`
	Name                   string   `json:"name"`
	Unit                   string   `json:"unit"`
	DefaultShelfLifeDays   int      `json:"default_shelf_life_days"`
	Barcode                string   `json:"barcode,omitempty"`
	MinQty                 *float64 `json:"min_qty"`
	LowStockEnabled        *bool    `json:"low_stock_enabled"`
	ExpiryKind             string   `json:"expiry_kind"`
	DefaultFreezeShelfDays *int64   `json:"default_freeze_shelf_days"`
	NoFreeze               bool     `json:"no_freeze"`
	Category               string   `json:"category,omitempty"`
	Description            string   `json:"description,omitempty"`
	DefaultLocationID      *int64   `json:"default_location_id"`
	ParentID               *int64   `json:"parent_id"`
}

// Expiry kinds.
const (
	ExpiryDLC = "DLC" // best-before
	ExpiryDDM = "DDM" // use-by
)

// DefaultShelfLifeDays applies when a product does not set its own.
const DefaultShelfLifeDays = 90

// TracksLowStock reports whether the product takes part in low-stock
// detection, falling back to def when the product leaves it unset.
func (p Product) TracksLowStock(def bool) bool {
	if p.LowStockEnabled == nil {
		return def
	}
	return *p.LowStockEnabled
}

// ProductInput is a loosely typed product form. Numeric and flag fields accept
// numbers, booleans or strings.
type ProductInput struct {
	Name                   string `json:"name"`
	Unit                   string `json:"unit"`
	DefaultShelfLifeDays   any    `json:"default_shelf_life_days"`
	Barcode                any    `json:"barcode"`
	MinQty                 any    `json:"min_qty"`
	LowStockEnabled        any    `json:"low_stock_enabled"`
	ExpiryKind             any    `json:"expiry_kind"`
	DefaultFreezeShelfDays any    `json:"default_freeze_shelf_days"`
	NoFreeze               any    `json:"no_freeze"`
	Category               string `json:"category"`
	Description            string `json:"description"`
	DefaultLocationID      any    `json:"default_location_id"`
	ParentID               any    `json:"parent_id"`
}

// Product coerces the form into a product. The unit is stored in canonical
// form. Only a blank name is rejected.
func (in ProductInput) Product() (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Product{}, NewValidationError("name", "required")
	}
	return Product{
		Name:                   name,
		Unit:                   string(units.Normalize(in.Unit)),
		DefaultShelfLifeDays:   IntOr(in.DefaultShelfLifeDays, DefaultShelfLifeDays),
		Barcode:                Digits(in.Barcode),
		MinQty:                 NonNegativeOrNil(in.MinQty),
		LowStockEnabled:        FlagOrNil(in.LowStockEnabled),
		ExpiryKind:             ParseExpiryKind(in.ExpiryKind),
		DefaultFreezeShelfDays: IntOrNil(in.DefaultFreezeShelfDays),
		NoFreeze:               Flag(in.NoFreeze),
		Category:               strings.TrimSpace(in.Category),
		Description:            strings.TrimSpace(in.Description),
		DefaultLocationID:      IntOrNil(in.DefaultLocationID),
		ParentID:               IntOrNil(in.ParentID),
	}, nil
}
