package model

import "github.com/shopspring/decimal"

// LowStockItem is a product whose open stock is under its minimum.
type LowStockItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	MinQty    float64 `json:"min_qty"`
	TotalQty  float64 `json:"total_qty"`
	Shortfall float64 `json:"shortfall"`
}

// PricePoint is one purchase price observation.
type PricePoint struct {
	Date       string          `json:"date"`
	PriceTotal decimal.Decimal `json:"price_total"`
	QtyPerUnit *float64        `json:"qty_per_unit"`
	Multiplier *int64          `json:"multiplier,omitempty"`
	Unit       string          `json:"unit,omitempty"`
	Store      string          `json:"store,omitempty"`
}

// Insights summarises a product's history. Nil fields have no data.
type Insights struct {
	ProductID    int64    `json:"product_id"`
	LastIn       string   `json:"last_in,omitempty"`
	LastOut      string   `json:"last_out,omitempty"`
	AvgShelfDays *float64 `json:"avg_shelf_days"`
	ExpiredRate  *float64 `json:"expired_rate"`
}

// UnitPrice is a price per kilogram, litre or piece with its label.
type UnitPrice struct {
	Price decimal.Decimal `json:"price"`
	Label string          `json:"label"`
}
