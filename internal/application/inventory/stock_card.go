package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// StockCard datos de la tarjeta de stock (kárdex) de un agregado.
type StockCard struct {
	Aggregate      *entity.StockAggregate
	Product        *entity.Product
	Location       *entity.StockLocation
	Entries        []*entity.LedgerEntry
	Reconciliation inventory.Reconciliation
}

// StockCardRenderer genera la representación imprimible de una tarjeta de stock.
type StockCardRenderer interface {
	RenderStockCard(ctx context.Context, card *StockCard) ([]byte, error)
}

// StockCardUseCase arma la tarjeta de stock y la exporta a PDF.
type StockCardUseCase struct {
	ledger       *LedgerService
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	renderer     StockCardRenderer
}

// NewStockCardUseCase construye el caso de uso.
func NewStockCardUseCase(
	ledger *LedgerService,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	renderer StockCardRenderer,
) *StockCardUseCase {
	return &StockCardUseCase{
		ledger:       ledger,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		renderer:     renderer,
	}
}

// Build reúne agregado, producto, ubicación, historial completo y conciliación.
func (uc *StockCardUseCase) Build(ctx context.Context, aggregateID string) (*StockCard, error) {
	agg, entries, err := uc.ledger.Snapshot(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	product, err := uc.productRepo.GetByID(ctx, agg.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		product = &entity.Product{ID: agg.ProductID}
	}
	location, err := uc.locationRepo.GetByID(ctx, agg.LocationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, agg.LocationID)
	}
	return &StockCard{
		Aggregate:      agg,
		Product:        product,
		Location:       location,
		Entries:        entries,
		Reconciliation: inventory.Reconcile(agg, entries),
	}, nil
}

// ExportPDF genera el PDF de la tarjeta de stock.
func (uc *StockCardUseCase) ExportPDF(ctx context.Context, aggregateID string) ([]byte, error) {
	card, err := uc.Build(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderStockCard(ctx, card)
}
