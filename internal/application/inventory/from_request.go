package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// ReceiveFromRequest adapta el request HTTP a ReceiveStock.
func (s *LedgerService) ReceiveFromRequest(ctx context.Context, actorID, idemKey string, in dto.ReceiveStockRequest) (*MovementResult, error) {
	return s.ReceiveStock(ctx, ReceiveStockInput{
		ProductID:      in.ProductID,
		LocationID:     in.LocationID,
		Quantity:       in.Quantity,
		ActorID:        actorID,
		Note:           in.Note,
		UnitCost:       in.UnitCost,
		IdempotencyKey: idemKey,
	})
}

// ReleaseFromRequest adapta el request HTTP a ReleaseStock.
func (s *LedgerService) ReleaseFromRequest(ctx context.Context, actorID, idemKey string, in dto.ReleaseStockRequest) (*MovementResult, error) {
	return s.ReleaseStock(ctx, ReleaseStockInput{
		ProductID:      in.ProductID,
		LocationID:     in.LocationID,
		Quantity:       in.Quantity,
		ActorID:        actorID,
		Note:           in.Note,
		IdempotencyKey: idemKey,
	})
}

// AdjustFromRequest adapta el request HTTP a RecordAdjustment.
func (s *LedgerService) AdjustFromRequest(ctx context.Context, aggregateID, actorID, idemKey string, in dto.AdjustmentRequest) (*MovementResult, error) {
	return s.RecordAdjustment(ctx, AdjustmentInput{
		AggregateID:    aggregateID,
		QuantityChange: in.QuantityChange,
		Type:           in.Type,
		Note:           in.Note,
		ActorID:        actorID,
		IdempotencyKey: idemKey,
	})
}

// ReverseFromRequest adapta el request HTTP a ReverseEntry.
func (s *LedgerService) ReverseFromRequest(ctx context.Context, entryID, actorID, idemKey string, in dto.ReverseEntryRequest) (*MovementResult, error) {
	return s.ReverseEntry(ctx, ReverseInput{
		EntryID:        entryID,
		ActorID:        actorID,
		Note:           in.Note,
		IdempotencyKey: idemKey,
	})
}

// ToStockResponse mapea un agregado a su DTO.
func ToStockResponse(a *entity.StockAggregate) dto.StockResponse {
	return dto.StockResponse{
		ID:         a.ID,
		ProductID:  a.ProductID,
		LocationID: a.LocationID,
		Quantity:   a.Quantity,
		AvgCost:    a.AvgCost,
		Version:    a.Version,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// ToLedgerEntryResponse mapea un asiento a su DTO.
func ToLedgerEntryResponse(e *entity.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:             e.ID,
		AggregateID:    e.AggregateID,
		QuantityChange: e.QuantityChange,
		Type:           e.Type,
		Note:           e.Note,
		ActorID:        e.ActorID,
		UnitCost:       e.UnitCost,
		ReversalOf:     e.ReversalOf,
		CreatedAt:      e.CreatedAt,
	}
}

// ToMovementResponse mapea el resultado de una operación.
func ToMovementResponse(r *MovementResult) dto.MovementResponse {
	return dto.MovementResponse{
		Created: r.Created,
		Stock:   ToStockResponse(r.Aggregate),
		Entry:   ToLedgerEntryResponse(r.Entry),
	}
}

// ToLedgerListResponse mapea una página del historial.
func ToLedgerListResponse(entries []*entity.LedgerEntry, limit, offset int) dto.LedgerListResponse {
	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, ToLedgerEntryResponse(e))
	}
	return dto.LedgerListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}
}

// ToStockListResponse mapea una página de agregados.
func ToStockListResponse(list []*entity.StockAggregate, total, limit, offset int) dto.StockListResponse {
	items := make([]dto.StockResponse, 0, len(list))
	for _, a := range list {
		items = append(items, ToStockResponse(a))
	}
	return dto.StockListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset, Total: total}}
}

// ToReconcileResponse mapea el resultado de la conciliación.
func ToReconcileResponse(r inventory.Reconciliation) dto.ReconcileResponse {
	return dto.ReconcileResponse{
		AggregateID: r.AggregateID,
		Quantity:    r.Quantity,
		LedgerSum:   r.LedgerSum,
		Entries:     r.Entries,
		Consistent:  r.Consistent(),
	}
}
