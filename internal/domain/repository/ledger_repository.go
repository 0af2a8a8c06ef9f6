package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerRepository define el puerto de persistencia del libro de inventario (sólo anexar).
type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error)
	// ListForAggregate ordena por creación ascendente. limit <= 0 devuelve todos.
	ListForAggregate(ctx context.Context, aggregateID string, limit, offset int) ([]*entity.LedgerEntry, error)
	SumForAggregate(ctx context.Context, aggregateID string) (sum int64, count int, err error)
	// HasReversal indica si ya existe un asiento que compensa a entryID.
	HasReversal(ctx context.Context, entryID string) (bool, error)
}
