package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `id, product_id, location_id, quantity, avg_cost, version, created_at, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func (r *StockRepo) scanOne(row pgx.Row, op string) (*entity.StockAggregate, error) {
	var s entity.StockAggregate
	err := row.Scan(&s.ID, &s.ProductID, &s.LocationID, &s.Quantity, &s.AvgCost, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &s, nil
}

// Find obtiene el agregado de un producto en una ubicación; (nil, nil) si no existe.
func (r *StockRepo) Find(ctx context.Context, productID, locationID string) (*entity.StockAggregate, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_aggregates WHERE product_id = $1 AND location_id = $2`
	return r.scanOne(r.q.QueryRow(ctx, query, productID, locationID), "get stock")
}

// FindForUpdate obtiene el agregado y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) FindForUpdate(ctx context.Context, productID, locationID string) (*entity.StockAggregate, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_aggregates WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`
	return r.scanOne(r.q.QueryRow(ctx, query, productID, locationID), "get stock for update")
}

// GetByID obtiene un agregado por ID.
func (r *StockRepo) GetByID(ctx context.Context, id string) (*entity.StockAggregate, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_aggregates WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id), "get stock by id")
}

// GetByIDForUpdate obtiene un agregado por ID y bloquea la fila.
func (r *StockRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockAggregate, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_aggregates WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(ctx, query, id), "get stock by id for update")
}

// Create inserta el agregado con versión 1. El UNIQUE(product_id, location_id) convierte
// un primer abastecimiento concurrente en domain.ErrConflict.
func (r *StockRepo) Create(ctx context.Context, agg *entity.StockAggregate) error {
	query := `
		INSERT INTO stock_aggregates (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		agg.ID, agg.ProductID, agg.LocationID, agg.Quantity, agg.AvgCost, agg.CreatedAt, agg.UpdatedAt,
	)
	if err != nil {
		return mapError("insert stock", err)
	}
	agg.Version = 1
	return nil
}

// SetQuantity sobrescribe cantidad y costo si la versión leída sigue vigente.
func (r *StockRepo) SetQuantity(ctx context.Context, agg *entity.StockAggregate) error {
	query := `
		UPDATE stock_aggregates
		SET quantity = $2, avg_cost = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $5`
	cmd, err := r.q.Exec(ctx, query, agg.ID, agg.Quantity, agg.AvgCost, agg.UpdatedAt, agg.Version)
	if err != nil {
		return mapError("update stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: agregado %s modificado por otro escritor", domain.ErrConflict, agg.ID)
	}
	agg.Version++
	return nil
}

// ListByLocation lista los agregados de una ubicación.
func (r *StockRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockAggregate, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_aggregates WHERE location_id = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, locationID, pageLimit(limit), offset)
	if err != nil {
		return nil, mapError("list stock by location", err)
	}
	defer rows.Close()
	var list []*entity.StockAggregate
	for rows.Next() {
		var s entity.StockAggregate
		if err := rows.Scan(&s.ID, &s.ProductID, &s.LocationID, &s.Quantity, &s.AvgCost, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, mapError("scan stock", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list stock by location", err)
	}
	return list, nil
}

// CountByLocation cuenta los agregados que referencian una ubicación.
func (r *StockRepo) CountByLocation(ctx context.Context, locationID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_aggregates WHERE location_id = $1`, locationID).Scan(&n)
	if err != nil {
		return 0, mapError("count stock by location", err)
	}
	return n, nil
}
