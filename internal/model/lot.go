package model

import (
	"github.com/shopspring/decimal"
)

// Lot statuses.
const (
	LotStatusOpen  = "open"
	LotStatusEmpty = "empty"
)

// NoteLotClosed is the note of the movement that exhausts a lot.
const NoteLotClosed = "lot terminé"

// PurchaseInfo is the purchase metadata carried by a lot.
type PurchaseInfo struct {
	Name           string              `json:"name,omitempty"`
	ArticleName    string              `json:"article_name,omitempty"`
	Brand          string              `json:"brand,omitempty"`
	EAN            string              `json:"ean,omitempty"`
	PriceTotal     decimal.NullDecimal `json:"price_total"`
	QtyPerUnit     *float64            `json:"qty_per_unit"`
	Multiplier     *int64              `json:"multiplier"`
	UnitAtPurchase string              `json:"unit_at_purchase,omitempty"`
	Store          string              `json:"store,omitempty"`
	Note           string              `json:"note,omitempty"`
}

// Lot is a quantity of one product bought at one time and kept in one place.
// Dates are ISO calendar dates; an empty string means unset.
type Lot struct {
	ID         int64   `json:"id"`
	ProductID  int64   `json:"product_id"`
	LocationID int64   `json:"location_id"`
	Qty        float64 `json:"qty"`
	InitialQty float64 `json:"initial_qty"`
	Status     string  `json:"status"`
	CreatedOn  string  `json:"created_on,omitempty"`
	EndedOn    string  `json:"ended_on,omitempty"`
	FrozenOn   string  `json:"frozen_on,omitempty"`
	BestBefore string  `json:"best_before,omitempty"`
	PurchaseInfo

	// Joined fields (not always populated).
	ProductName  string `json:"product_name,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	Unit         string `json:"unit,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	Barcode      string `json:"barcode,omitempty"`
}

// MergeAction tells whether MergeOrCreate grew an existing lot or inserted one.
type MergeAction string

// Merge actions.
const (
	MergeActionMerge  MergeAction = "merge"
	MergeActionInsert MergeAction = "insert"
)

// MergeResult is the outcome of MergeOrCreate.
type MergeResult struct {
	Action MergeAction `json:"action"`
	LotID  int64       `json:"lot_id"`
	NewQty float64     `json:"new_qty"`
}

// Purchase is one purchase line: Qty units of UnitAtPurchase, bought
// Multiplier times.
type Purchase struct {
	ProductID  int64
	LocationID int64
	Qty        float64
	Unit       string
	Multiplier int64
	PriceTotal decimal.NullDecimal
	EAN        string
	Name       string
	Brand      string
	Store      string
	Note       string
	BestBefore string
	FrozenOn   string
}

// PurchaseResult is the outcome of recording a purchase.
type PurchaseResult struct {
	MergeResult
	QtyDelta float64 `json:"qty_delta"`
}

// ProductStock is the open stock of one product, lots in FIFO order.
type ProductStock struct {
	ProductID int64   `json:"product_id"`
	Unit      string  `json:"unit"`
	Brand     string  `json:"brand,omitempty"`
	TotalQty  float64 `json:"total_qty"`
	LotsCount int     `json:"lots_count"`
	FIFO      *Lot    `json:"fifo"`
	Lots      []Lot   `json:"lots"`
}
