package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para StockLocation (DIP).
type LocationRepository interface {
	Create(ctx context.Context, location *entity.StockLocation) error
	GetByID(ctx context.Context, id string) (*entity.StockLocation, error)
	Update(ctx context.Context, location *entity.StockLocation) error
	List(ctx context.Context, limit, offset int) ([]*entity.StockLocation, error)
	// Delete falla con domain.ErrInUse si algún agregado referencia la ubicación.
	Delete(ctx context.Context, id string) error
}
