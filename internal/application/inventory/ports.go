package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; la lectura-modificación-escritura del agregado y el anexo
// al libro confirman juntos o no confirman.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ctx context.Context,
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error
}

// IdempotencyStore reserva claves de idempotencia para escrituras.
type IdempotencyStore interface {
	// Claim devuelve false si la clave ya estaba reservada.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Metrics recibe los eventos del libro para observabilidad.
type Metrics interface {
	ObserveMovement(kind, result string)
	ObserveConflictRetry(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveMovement(string, string) {}
func (nopMetrics) ObserveConflictRetry(string)    {}
