package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `seq, id, aggregate_id, quantity_change, type, note, actor_id, unit_cost, reversal_of, created_at`

// LedgerRepo implementación del libro sobre PostgreSQL. Sólo INSERT y SELECT:
// la tabla además tiene un trigger que rechaza UPDATE y DELETE.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append persiste un asiento y completa su Seq.
func (r *LedgerRepo) Append(ctx context.Context, entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, aggregate_id, quantity_change, type, note, actor_id, unit_cost, reversal_of, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		entry.ID, entry.AggregateID, entry.QuantityChange, entry.Type, entry.Note,
		nullable(entry.ActorID), entry.UnitCost, nullable(entry.ReversalOf), entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return mapError("append ledger entry", err)
	}
	return nil
}

func scanEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var actorID, reversalOf *string
	if err := row.Scan(&e.Seq, &e.ID, &e.AggregateID, &e.QuantityChange, &e.Type, &e.Note,
		&actorID, &e.UnitCost, &reversalOf, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ActorID = deref(actorID)
	e.ReversalOf = deref(reversalOf)
	return &e, nil
}

// GetByID obtiene un asiento por ID.
func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`
	e, err := scanEntry(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get ledger entry", err)
	}
	return e, nil
}

// ListForAggregate lista los asientos de un agregado en orden de creación ascendente.
func (r *LedgerRepo) ListForAggregate(ctx context.Context, aggregateID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries WHERE aggregate_id = $1
		ORDER BY created_at ASC, seq ASC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, aggregateID, pageLimit(limit), offset)
	if err != nil {
		return nil, mapError("list ledger entries", err)
	}
	defer rows.Close()
	list := make([]*entity.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, mapError("scan ledger entry", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list ledger entries", err)
	}
	return list, nil
}

// SumForAggregate suma los cambios del libro de un agregado.
func (r *LedgerRepo) SumForAggregate(ctx context.Context, aggregateID string) (int64, int, error) {
	var sum int64
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity_change), 0)::bigint, count(*) FROM ledger_entries WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&sum, &count)
	if err != nil {
		return 0, 0, mapError("sum ledger entries", err)
	}
	return sum, count, nil
}

// HasReversal indica si existe un asiento con reversal_of = entryID.
func (r *LedgerRepo) HasReversal(ctx context.Context, entryID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE reversal_of = $1)`, entryID,
	).Scan(&exists)
	if err != nil {
		return false, mapError("check ledger reversal", err)
	}
	return exists, nil
}
