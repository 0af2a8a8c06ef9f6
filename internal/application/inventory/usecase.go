package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// DefaultMaxAttempts intentos por operación cuando hay conflicto de concurrencia.
const DefaultMaxAttempts = 3

const initialStockNote = "initial stock"

// Resultados de una operación para métricas.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// LedgerService orquesta el agregado de stock y el libro de inventario.
// receive, release, ajustes y reversos son los únicos escritores de la cantidad; cada uno corre
// en una transacción con bloqueo de fila (FindForUpdate) y reintenta ante domain.ErrConflict.
type LedgerService struct {
	txRunner     TxRunner
	stockRepo    repository.StockRepository
	ledgerRepo   repository.LedgerRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository

	idem        IdempotencyStore
	metrics     Metrics
	log         zerolog.Logger
	maxAttempts int
	now         func() time.Time
}

// Options dependencias opcionales del servicio.
type Options struct {
	MaxAttempts int
	Idempotency IdempotencyStore
	Metrics     Metrics
	Logger      *zerolog.Logger
	Clock       func() time.Time
}

// NewLedgerService construye el servicio. stockRepo y ledgerRepo se usan para lecturas fuera de tx.
func NewLedgerService(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	opts Options,
) *LedgerService {
	s := &LedgerService{
		txRunner:     txRunner,
		stockRepo:    stockRepo,
		ledgerRepo:   ledgerRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		idem:         opts.Idempotency,
		metrics:      opts.Metrics,
		log:          zerolog.Nop(),
		maxAttempts:  opts.MaxAttempts,
		now:          opts.Clock,
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "ledger").Logger()
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ReceiveStockInput entrada de receiveStock.
type ReceiveStockInput struct {
	ProductID      string
	LocationID     string
	Quantity       int64
	ActorID        string
	Note           string
	UnitCost       *decimal.Decimal
	IdempotencyKey string
}

// ReleaseStockInput entrada de releaseStock (export).
type ReleaseStockInput struct {
	ProductID      string
	LocationID     string
	Quantity       int64
	ActorID        string
	Note           string
	IdempotencyKey string
}

// AdjustmentInput entrada de recordAdjustment.
type AdjustmentInput struct {
	AggregateID    string
	QuantityChange int64
	Type           string // vacío o "adjust"
	Note           string
	ActorID        string
	IdempotencyKey string
}

// ReverseInput entrada de reverseEntry.
type ReverseInput struct {
	EntryID        string
	ActorID        string
	Note           string
	IdempotencyKey string
}

// MovementResult agregado resultante y asiento anexado.
// Created distingue el primer abastecimiento de un par (201) de una actualización (200).
type MovementResult struct {
	Aggregate *entity.StockAggregate
	Entry     *entity.LedgerEntry
	Created   bool
}

// ReceiveStock suma stock al par (producto, ubicación); crea el agregado en el primer abastecimiento.
func (s *LedgerService) ReceiveStock(ctx context.Context, in ReceiveStockInput) (*MovementResult, error) {
	if in.ProductID == "" || in.LocationID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if err := s.checkReferences(ctx, in.ProductID, in.LocationID); err != nil {
		return nil, err
	}

	var res *MovementResult
	err := s.withIdempotency(ctx, "receive", in.IdempotencyKey, func() error {
		return s.runWithRetry(ctx, entity.LedgerTypeAdd, func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error {
			now := s.now()
			created := false
			note := in.Note
			agg, err := stockRepo.FindForUpdate(ctx, in.ProductID, in.LocationID)
			if err != nil {
				return err
			}
			if agg == nil {
				agg = &entity.StockAggregate{
					ID:         uuid.New().String(),
					ProductID:  in.ProductID,
					LocationID: in.LocationID,
					AvgCost:    decimal.Zero,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := inventory.Receive(agg, in.Quantity, in.UnitCost); err != nil {
					return err
				}
				if err := stockRepo.Create(ctx, agg); err != nil {
					return err
				}
				created = true
				if note == "" {
					note = initialStockNote
				}
			} else {
				if err := inventory.Receive(agg, in.Quantity, in.UnitCost); err != nil {
					return err
				}
				agg.UpdatedAt = now
				if err := stockRepo.SetQuantity(ctx, agg); err != nil {
					return err
				}
			}
			unitCost := decimal.Zero
			if in.UnitCost != nil {
				unitCost = *in.UnitCost
			}
			entry := &entity.LedgerEntry{
				ID:             uuid.New().String(),
				AggregateID:    agg.ID,
				QuantityChange: in.Quantity,
				Type:           entity.LedgerTypeAdd,
				Note:           note,
				ActorID:        in.ActorID,
				UnitCost:       unitCost,
				CreatedAt:      now,
			}
			if err := ledgerRepo.Append(ctx, entry); err != nil {
				return err
			}
			res = &MovementResult{Aggregate: agg, Entry: entry, Created: created}
			return nil
		})
	})
	s.observe(entity.LedgerTypeAdd, err)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("aggregate_id", res.Aggregate.ID).
		Int64("change", res.Entry.QuantityChange).
		Int64("quantity", res.Aggregate.Quantity).
		Bool("created", res.Created).
		Str("actor_id", in.ActorID).
		Msg("stock recibido")
	return res, nil
}

// ReleaseStock descuenta stock del par (producto, ubicación).
// Falla con ErrNotFound si no hay agregado y con ErrInsufficientStock si la cantidad supera lo disponible;
// en ambos casos ni el agregado ni el libro cambian.
func (s *LedgerService) ReleaseStock(ctx context.Context, in ReleaseStockInput) (*MovementResult, error) {
	if in.ProductID == "" || in.LocationID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}

	var res *MovementResult
	err := s.withIdempotency(ctx, "release", in.IdempotencyKey, func() error {
		return s.runWithRetry(ctx, entity.LedgerTypeExport, func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error {
			now := s.now()
			agg, err := stockRepo.FindForUpdate(ctx, in.ProductID, in.LocationID)
			if err != nil {
				return err
			}
			if agg == nil {
				return fmt.Errorf("%w: no hay stock del producto %s en la ubicación %s", domain.ErrNotFound, in.ProductID, in.LocationID)
			}
			unitCost := agg.AvgCost
			if err := inventory.Release(agg, in.Quantity); err != nil {
				return err
			}
			agg.UpdatedAt = now
			if err := stockRepo.SetQuantity(ctx, agg); err != nil {
				return err
			}
			entry := &entity.LedgerEntry{
				ID:             uuid.New().String(),
				AggregateID:    agg.ID,
				QuantityChange: -in.Quantity,
				Type:           entity.LedgerTypeExport,
				Note:           in.Note,
				ActorID:        in.ActorID,
				UnitCost:       unitCost,
				CreatedAt:      now,
			}
			if err := ledgerRepo.Append(ctx, entry); err != nil {
				return err
			}
			res = &MovementResult{Aggregate: agg, Entry: entry}
			return nil
		})
	})
	s.observe(entity.LedgerTypeExport, err)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("aggregate_id", res.Aggregate.ID).
		Int64("change", res.Entry.QuantityChange).
		Int64("quantity", res.Aggregate.Quantity).
		Str("actor_id", in.ActorID).
		Msg("stock despachado")
	return res, nil
}

// RecordAdjustment aplica un ajuste administrativo con signo sobre un agregado existente,
// en la misma transacción que su asiento. Un ajuste negativo respeta la no negatividad.
func (s *LedgerService) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*MovementResult, error) {
	if in.AggregateID == "" || in.QuantityChange == 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Type != "" && in.Type != entity.LedgerTypeAdjust {
		// add/export sólo pasan por ReceiveStock/ReleaseStock
		return nil, domain.ErrInvalidInput
	}

	var res *MovementResult
	err := s.withIdempotency(ctx, "adjust", in.IdempotencyKey, func() error {
		return s.runWithRetry(ctx, entity.LedgerTypeAdjust, func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error {
			now := s.now()
			agg, err := stockRepo.GetByIDForUpdate(ctx, in.AggregateID)
			if err != nil {
				return err
			}
			if agg == nil {
				return fmt.Errorf("%w: agregado %s", domain.ErrNotFound, in.AggregateID)
			}
			entry, err := s.applyAdjustment(ctx, stockRepo, ledgerRepo, agg, in.QuantityChange, in.Note, in.ActorID, "", now)
			if err != nil {
				return err
			}
			res = &MovementResult{Aggregate: agg, Entry: entry}
			return nil
		})
	})
	s.observe(entity.LedgerTypeAdjust, err)
	if err != nil {
		return nil, err
	}
	s.log.Warn().
		Bool("override", true).
		Str("aggregate_id", res.Aggregate.ID).
		Int64("change", res.Entry.QuantityChange).
		Int64("quantity", res.Aggregate.Quantity).
		Str("actor_id", in.ActorID).
		Str("note", in.Note).
		Msg("ajuste administrativo registrado")
	return res, nil
}

// ReverseEntry compensa un asiento existente con uno nuevo de signo opuesto.
// Un asiento sólo puede revertirse una vez y un reverso no se revierte.
func (s *LedgerService) ReverseEntry(ctx context.Context, in ReverseInput) (*MovementResult, error) {
	if in.EntryID == "" {
		return nil, domain.ErrInvalidInput
	}

	var res *MovementResult
	err := s.withIdempotency(ctx, "reverse", in.IdempotencyKey, func() error {
		return s.runWithRetry(ctx, entity.LedgerTypeAdjust, func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error {
			now := s.now()
			orig, err := ledgerRepo.GetByID(ctx, in.EntryID)
			if err != nil {
				return err
			}
			if orig == nil {
				return fmt.Errorf("%w: asiento %s", domain.ErrNotFound, in.EntryID)
			}
			if orig.ReversalOf != "" {
				return fmt.Errorf("%w: el asiento %s ya es un reverso", domain.ErrInvalidInput, orig.ID)
			}
			agg, err := stockRepo.GetByIDForUpdate(ctx, orig.AggregateID)
			if err != nil {
				return err
			}
			if agg == nil {
				return fmt.Errorf("%w: agregado %s", domain.ErrNotFound, orig.AggregateID)
			}
			// Con la fila del agregado bloqueada ningún otro reverso del mismo asiento avanza.
			reversed, err := ledgerRepo.HasReversal(ctx, orig.ID)
			if err != nil {
				return err
			}
			if reversed {
				return fmt.Errorf("%w: el asiento %s ya fue revertido", domain.ErrDuplicate, orig.ID)
			}
			note := in.Note
			if note == "" {
				note = "reverso de " + orig.ID
			}
			entry, err := s.applyAdjustment(ctx, stockRepo, ledgerRepo, agg, -orig.QuantityChange, note, in.ActorID, orig.ID, now)
			if err != nil {
				return err
			}
			res = &MovementResult{Aggregate: agg, Entry: entry}
			return nil
		})
	})
	s.observe("reverse", err)
	if err != nil {
		return nil, err
	}
	s.log.Warn().
		Bool("override", true).
		Str("aggregate_id", res.Aggregate.ID).
		Str("reversal_of", in.EntryID).
		Int64("change", res.Entry.QuantityChange).
		Str("actor_id", in.ActorID).
		Msg("asiento revertido")
	return res, nil
}

func (s *LedgerService) applyAdjustment(
	ctx context.Context,
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	agg *entity.StockAggregate,
	change int64, note, actorID, reversalOf string,
	now time.Time,
) (*entity.LedgerEntry, error) {
	if err := inventory.Apply(agg, change); err != nil {
		return nil, err
	}
	agg.UpdatedAt = now
	if err := stockRepo.SetQuantity(ctx, agg); err != nil {
		return nil, err
	}
	entry := &entity.LedgerEntry{
		ID:             uuid.New().String(),
		AggregateID:    agg.ID,
		QuantityChange: change,
		Type:           entity.LedgerTypeAdjust,
		Note:           note,
		ActorID:        actorID,
		UnitCost:       agg.AvgCost,
		ReversalOf:     reversalOf,
		CreatedAt:      now,
	}
	if err := ledgerRepo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Find devuelve el agregado del par o ErrNotFound.
func (s *LedgerService) Find(ctx context.Context, productID, locationID string) (*entity.StockAggregate, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	agg, err := s.stockRepo.Find(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, domain.ErrNotFound
	}
	return agg, nil
}

// GetAggregate devuelve un agregado por ID o ErrNotFound.
func (s *LedgerService) GetAggregate(ctx context.Context, aggregateID string) (*entity.StockAggregate, error) {
	agg, err := s.stockRepo.GetByID(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, domain.ErrNotFound
	}
	return agg, nil
}

// ListForAggregate historial del agregado en orden de creación ascendente.
func (s *LedgerService) ListForAggregate(ctx context.Context, aggregateID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	if _, err := s.GetAggregate(ctx, aggregateID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListForAggregate(ctx, aggregateID, limit, offset)
}

// Snapshot lee el agregado y su libro completo bajo el bloqueo de fila del agregado,
// de modo que ningún movimiento concurrente quede a medias entre ambas lecturas.
func (s *LedgerService) Snapshot(ctx context.Context, aggregateID string) (*entity.StockAggregate, []*entity.LedgerEntry, error) {
	var (
		agg     *entity.StockAggregate
		entries []*entity.LedgerEntry
	)
	err := s.txRunner.Run(ctx, func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error {
		var err error
		agg, err = stockRepo.GetByIDForUpdate(ctx, aggregateID)
		if err != nil {
			return err
		}
		if agg == nil {
			return fmt.Errorf("%w: agregado %s", domain.ErrNotFound, aggregateID)
		}
		entries, err = ledgerRepo.ListForAggregate(ctx, aggregateID, 0, 0)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return agg, entries, nil
}

// ListByLocation agregados de una ubicación y el total para paginar.
func (s *LedgerService) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockAggregate, int, error) {
	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, 0, err
	}
	if location == nil {
		return nil, 0, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, locationID)
	}
	list, err := s.stockRepo.ListByLocation(ctx, locationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.stockRepo.CountByLocation(ctx, locationID)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Reconcile compara la cantidad del agregado con la suma de su libro dentro de una misma transacción.
func (s *LedgerService) Reconcile(ctx context.Context, aggregateID string) (inventory.Reconciliation, error) {
	var rec inventory.Reconciliation
	err := s.txRunner.Run(ctx, func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error {
		agg, err := stockRepo.GetByIDForUpdate(ctx, aggregateID)
		if err != nil {
			return err
		}
		if agg == nil {
			return domain.ErrNotFound
		}
		sum, count, err := ledgerRepo.SumForAggregate(ctx, aggregateID)
		if err != nil {
			return err
		}
		rec = inventory.Reconciliation{AggregateID: agg.ID, Quantity: agg.Quantity, LedgerSum: sum, Entries: count}
		return nil
	})
	if err != nil {
		return inventory.Reconciliation{}, err
	}
	if !rec.Consistent() {
		s.log.Error().
			Str("aggregate_id", rec.AggregateID).
			Int64("quantity", rec.Quantity).
			Int64("ledger_sum", rec.LedgerSum).
			Msg("agregado y libro no concilian")
	}
	return rec, nil
}

// checkReferences valida que producto y ubicación existan antes de crear un agregado.
func (s *LedgerService) checkReferences(ctx context.Context, productID, locationID string) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return err
	}
	if location == nil {
		return fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, locationID)
	}
	return nil
}

// runWithRetry ejecuta fn en una transacción y la repite mientras falle con ErrConflict,
// hasta maxAttempts intentos. Cualquier otro error se devuelve sin reintentar.
func (s *LedgerService) runWithRetry(
	ctx context.Context,
	kind string,
	fn func(ctx context.Context, stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) error,
) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.txRunner.Run(ctx, fn)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		s.metrics.ObserveConflictRetry(kind)
		s.log.Debug().Str("kind", kind).Int("attempt", attempt).Err(err).Msg("conflicto de concurrencia, reintentando")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	s.log.Warn().Str("kind", kind).Int("attempts", s.maxAttempts).Msg("conflicto persistente")
	return err
}

// withIdempotency reserva la clave antes de fn y la libera si fn falla, para que el cliente reintente.
// La liberación no hereda la cancelación de ctx: un cliente que corta la conexión no deja la clave tomada.
func (s *LedgerService) withIdempotency(ctx context.Context, op, key string, fn func() error) error {
	if key == "" || s.idem == nil {
		return fn()
	}
	scoped := op + ":" + key
	ok, err := s.idem.Claim(ctx, scoped)
	if err != nil {
		return fmt.Errorf("%w: reservar clave de idempotencia: %w", domain.ErrStorage, err)
	}
	if !ok {
		return domain.ErrIdempotencyReplay
	}
	if err := fn(); err != nil {
		if relErr := s.idem.Release(context.WithoutCancel(ctx), scoped); relErr != nil {
			s.log.Error().Err(relErr).Str("key", scoped).Msg("liberar clave de idempotencia")
		}
		return err
	}
	return nil
}

func (s *LedgerService) observe(kind string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveMovement(kind, resultOK)
	case domain.IsBusiness(err), errors.Is(err, domain.ErrIdempotencyReplay), errors.Is(err, domain.ErrDuplicate):
		s.metrics.ObserveMovement(kind, resultRejected)
	default:
		s.metrics.ObserveMovement(kind, resultError)
	}
}
