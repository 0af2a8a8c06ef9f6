package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveStockRequest body para POST /api/inventory/receive.
type ReceiveStockRequest struct {
	ProductID  string           `json:"product_id" validate:"required,uuid"`
	LocationID string           `json:"location_id" validate:"required,uuid"`
	Quantity   int64            `json:"quantity" validate:"required,gt=0,max=1000000000"`
	Note       string           `json:"note" validate:"max=500"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
}

// ReleaseStockRequest body para POST /api/inventory/release.
type ReleaseStockRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0,max=1000000000"`
	Note       string `json:"note" validate:"max=500"`
}

// AdjustmentRequest body para POST /api/inventory/:id/adjustments (sólo admin).
type AdjustmentRequest struct {
	QuantityChange int64  `json:"quantity_change" validate:"required,ne=0,min=-1000000000,max=1000000000"`
	Type           string `json:"type" validate:"omitempty,oneof=adjust"`
	Note           string `json:"note" validate:"required,max=500"`
}

// ReverseEntryRequest body para POST /api/ledger/:id/reverse (sólo admin).
type ReverseEntryRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// StockResponse salida de un agregado de stock.
type StockResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Quantity   int64           `json:"quantity"`
	AvgCost    decimal.Decimal `json:"avg_cost"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LedgerEntryResponse salida de un asiento del libro.
type LedgerEntryResponse struct {
	ID             string          `json:"id"`
	AggregateID    string          `json:"aggregate_id"`
	QuantityChange int64           `json:"quantity_change"`
	Type           string          `json:"type"`
	Note           string          `json:"note"`
	ActorID        string          `json:"actor_id"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	ReversalOf     string          `json:"reversal_of,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// MovementResponse resultado de receive/release/ajuste/reverso.
type MovementResponse struct {
	Created bool                `json:"created"`
	Stock   StockResponse       `json:"stock"`
	Entry   LedgerEntryResponse `json:"entry"`
}

// LedgerListResponse historial paginado de un agregado.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// ReconcileResponse resultado de la conciliación agregado vs libro.
type ReconcileResponse struct {
	AggregateID string `json:"aggregate_id"`
	Quantity    int64  `json:"quantity"`
	LedgerSum   int64  `json:"ledger_sum"`
	Entries     int    `json:"entries"`
	Consistent  bool   `json:"consistent"`
}

// StockListResponse agregados paginados de una ubicación.
type StockListResponse struct {
	Items []StockResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
