package inventory_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	// (10*100 + 5*130) / 15 = 110
	got := inventory.CostCalculator(10, decimal.NewFromInt(100), 5, decimal.NewFromInt(130))
	assert.True(t, got.Equal(decimal.NewFromInt(110)), "esperado 110, obtenido %s", got)
}

func TestCostCalculator_SinStockDevuelveCero(t *testing.T) {
	got := inventory.CostCalculator(0, decimal.Zero, 0, decimal.NewFromInt(50))
	assert.True(t, got.IsZero())
}

func TestReceive_SumaYRecalculaCosto(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 10, AvgCost: decimal.NewFromInt(100)}
	cost := decimal.NewFromInt(130)
	require.NoError(t, inventory.Receive(agg, 5, &cost))
	assert.Equal(t, int64(15), agg.Quantity)
	assert.True(t, agg.AvgCost.Equal(decimal.NewFromInt(110)))
}

func TestReceive_SinCostoConservaPromedio(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 10, AvgCost: decimal.NewFromInt(100)}
	require.NoError(t, inventory.Receive(agg, 5, nil))
	assert.Equal(t, int64(15), agg.Quantity)
	assert.True(t, agg.AvgCost.Equal(decimal.NewFromInt(100)))
}

func TestReceive_CantidadNoPositiva(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 3}
	assert.ErrorIs(t, inventory.Receive(agg, 0, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.Receive(agg, -2, nil), domain.ErrInvalidInput)
	assert.Equal(t, int64(3), agg.Quantity)
}

func TestReceive_DesbordeEsEntradaInvalida(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 5, AvgCost: decimal.NewFromInt(9)}
	err := inventory.Receive(agg, math.MaxInt64-4, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(5), agg.Quantity)
	assert.True(t, agg.AvgCost.Equal(decimal.NewFromInt(9)))

	assert.ErrorIs(t, inventory.Apply(agg, math.MaxInt64), domain.ErrInvalidInput)
	require.NoError(t, inventory.Receive(agg, math.MaxInt64-5, nil))
	assert.Equal(t, int64(math.MaxInt64), agg.Quantity)
}

func TestRelease_StockInsuficienteNoModifica(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 4, AvgCost: decimal.NewFromInt(7)}
	err := inventory.Release(agg, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(4), agg.Quantity)
	assert.True(t, agg.AvgCost.Equal(decimal.NewFromInt(7)))
}

func TestRelease_HastaCeroLimpiaCosto(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 4, AvgCost: decimal.NewFromInt(7)}
	require.NoError(t, inventory.Release(agg, 4))
	assert.Equal(t, int64(0), agg.Quantity)
	assert.True(t, agg.AvgCost.IsZero())
}

func TestApply_SignoDecideDireccion(t *testing.T) {
	agg := &entity.StockAggregate{Quantity: 10}
	require.NoError(t, inventory.Apply(agg, 5))
	require.NoError(t, inventory.Apply(agg, -12))
	assert.Equal(t, int64(3), agg.Quantity)
	assert.ErrorIs(t, inventory.Apply(agg, -4), domain.ErrInsufficientStock)
	assert.ErrorIs(t, inventory.Apply(agg, 0), domain.ErrInvalidInput)
}

func TestReconcile(t *testing.T) {
	agg := &entity.StockAggregate{ID: "a1", Quantity: 70}
	entries := []*entity.LedgerEntry{
		{QuantityChange: 50}, {QuantityChange: 20},
	}
	r := inventory.Reconcile(agg, entries)
	assert.True(t, r.Consistent())
	assert.Equal(t, 2, r.Entries)

	agg.Quantity = 69
	assert.False(t, inventory.Reconcile(agg, entries).Consistent())
}
