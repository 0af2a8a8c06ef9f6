// Package inventory contiene las reglas puras del agregado de stock y del libro:
// aritmética de cantidades, no negatividad y conciliación. No conoce la persistencia.
package inventory

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Receive suma qty al agregado. Con unitCost no nil recalcula el costo promedio.
// Una suma que desborda int64 es entrada inválida y deja el agregado intacto.
func Receive(agg *entity.StockAggregate, qty int64, unitCost *decimal.Decimal) error {
	if qty <= 0 {
		return fmt.Errorf("%w: la cantidad a recibir debe ser positiva", domain.ErrInvalidInput)
	}
	if qty > math.MaxInt64-agg.Quantity {
		return fmt.Errorf("%w: la cantidad resultante excede el máximo representable", domain.ErrInvalidInput)
	}
	if unitCost != nil {
		agg.AvgCost = CostCalculator(agg.Quantity, agg.AvgCost, qty, *unitCost)
	}
	agg.Quantity += qty
	return nil
}

// Release resta qty del agregado. Falla con ErrInsufficientStock si qty supera lo disponible;
// en ese caso el agregado queda intacto.
func Release(agg *entity.StockAggregate, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: la cantidad a despachar debe ser positiva", domain.ErrInvalidInput)
	}
	if agg.Quantity < qty {
		return fmt.Errorf("%w: disponible %d, solicitado %d", domain.ErrInsufficientStock, agg.Quantity, qty)
	}
	agg.Quantity -= qty
	if agg.Quantity == 0 {
		agg.AvgCost = decimal.Zero
	}
	return nil
}

// Apply aplica un cambio con signo (ajustes y reversos) con las mismas reglas que Receive/Release.
func Apply(agg *entity.StockAggregate, change int64) error {
	switch {
	case change > 0:
		return Receive(agg, change, nil)
	case change < 0:
		return Release(agg, -change)
	default:
		return fmt.Errorf("%w: el cambio no puede ser cero", domain.ErrInvalidInput)
	}
}

// LedgerSum suma los cambios de cantidad de los asientos.
func LedgerSum(entries []*entity.LedgerEntry) int64 {
	var sum int64
	for _, e := range entries {
		sum += e.QuantityChange
	}
	return sum
}

// Reconciliation resultado de comparar un agregado con su libro.
type Reconciliation struct {
	AggregateID string
	Quantity    int64
	LedgerSum   int64
	Entries     int
}

// Consistent indica si la cantidad del agregado coincide con la suma del libro.
func (r Reconciliation) Consistent() bool {
	return r.Quantity == r.LedgerSum
}

// Reconcile compara la cantidad del agregado con la suma de sus asientos.
func Reconcile(agg *entity.StockAggregate, entries []*entity.LedgerEntry) Reconciliation {
	return Reconciliation{
		AggregateID: agg.ID,
		Quantity:    agg.Quantity,
		LedgerSum:   LedgerSum(entries),
		Entries:     len(entries),
	}
}
