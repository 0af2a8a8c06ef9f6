package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRepository define el puerto para leer/escribir StockAggregate.
// No hace aritmética ni bloqueos por sí mismo: el servicio lo usa dentro de TxRunner.
type StockRepository interface {
	// Find devuelve (nil, nil) si no existe agregado para el par.
	Find(ctx context.Context, productID, locationID string) (*entity.StockAggregate, error)
	// FindForUpdate como Find pero bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	FindForUpdate(ctx context.Context, productID, locationID string) (*entity.StockAggregate, error)
	GetByID(ctx context.Context, id string) (*entity.StockAggregate, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.StockAggregate, error)
	// Create falla con domain.ErrConflict si ya existe un agregado para el par.
	Create(ctx context.Context, agg *entity.StockAggregate) error
	// SetQuantity sobrescribe cantidad y costo si la versión no cambió; incrementa agg.Version.
	// Devuelve domain.ErrConflict si otro escritor modificó la fila.
	SetQuantity(ctx context.Context, agg *entity.StockAggregate) error
	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockAggregate, error)
	CountByLocation(ctx context.Context, locationID string) (int, error)
}
