package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository consulta el catálogo (sólo lectura desde el inventario).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
