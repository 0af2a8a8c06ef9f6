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

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de persistencia para ubicaciones.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una nueva ubicación.
func (r *LocationRepo) Create(ctx context.Context, location *entity.StockLocation) error {
	query := `
		INSERT INTO stock_locations (id, name, address, contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		location.ID, location.Name, location.Address, location.Contact,
		location.CreatedAt, location.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return mapError("insert location", err)
	}
	return nil
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.StockLocation, error) {
	query := `
		SELECT id, name, address, contact, created_at, updated_at
		FROM stock_locations WHERE id = $1`
	var l entity.StockLocation
	err := r.q.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.Name, &l.Address, &l.Contact, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get location", err)
	}
	return &l, nil
}

// Update actualiza los campos descriptivos de una ubicación.
func (r *LocationRepo) Update(ctx context.Context, location *entity.StockLocation) error {
	query := `
		UPDATE stock_locations SET name = $2, address = $3, contact = $4, updated_at = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		location.ID, location.Name, location.Address, location.Contact, location.UpdatedAt,
	)
	if err != nil {
		return mapError("update location", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista ubicaciones con paginación.
func (r *LocationRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockLocation, error) {
	query := `
		SELECT id, name, address, contact, created_at, updated_at
		FROM stock_locations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, pageLimit(limit), offset)
	if err != nil {
		return nil, mapError("list locations", err)
	}
	defer rows.Close()
	var list []*entity.StockLocation
	for rows.Next() {
		var l entity.StockLocation
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Contact, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, mapError("scan location", err)
		}
		list = append(list, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list locations", err)
	}
	return list, nil
}

// Delete elimina una ubicación. La FK ON DELETE RESTRICT de stock_aggregates impide borrar
// una ubicación referenciada.
func (r *LocationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM stock_locations WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return fmt.Errorf("%w: ubicación %s", domain.ErrInUse, id)
		}
		return mapError("delete location", err)
	}
	return nil
}
