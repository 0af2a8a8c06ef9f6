// Package memory implementa los puertos de persistencia en proceso.
// Un único mutex serializa las transacciones (un escritor a la vez); las escrituras de una
// transacción se acumulan y sólo se aplican al confirmar, de modo que un error las descarta.
// Se usa en desarrollo (STORAGE_DRIVER=memory) y como backend de pruebas.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ inventory.TxRunner            = (*Store)(nil)
	_ repository.StockRepository    = (*stockView)(nil)
	_ repository.LedgerRepository   = (*ledgerView)(nil)
	_ repository.LocationRepository = (*locationView)(nil)
	_ repository.ProductRepository  = (*productView)(nil)
)

// Store guarda productos, ubicaciones, agregados y asientos en memoria.
type Store struct {
	mu          sync.Mutex
	products    map[string]*entity.Product
	locations   map[string]*entity.StockLocation
	aggregates  map[string]*entity.StockAggregate
	byKey       map[string]string   // producto|ubicación -> id de agregado
	entries     map[string]*entity.LedgerEntry
	byAggregate map[string][]string // id de agregado -> ids de asientos en orden de inserción
	reversals   map[string]string   // asiento original -> reverso
	seq         int64
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		products:    make(map[string]*entity.Product),
		locations:   make(map[string]*entity.StockLocation),
		aggregates:  make(map[string]*entity.StockAggregate),
		byKey:       make(map[string]string),
		entries:     make(map[string]*entity.LedgerEntry),
		byAggregate: make(map[string][]string),
		reversals:   make(map[string]string),
	}
}

// Stock devuelve el repositorio de agregados fuera de transacción.
func (s *Store) Stock() repository.StockRepository { return &stockView{s: s} }

// Ledger devuelve el repositorio del libro fuera de transacción.
func (s *Store) Ledger() repository.LedgerRepository { return &ledgerView{s: s} }

// Locations devuelve el repositorio de ubicaciones.
func (s *Store) Locations() repository.LocationRepository { return &locationView{s: s} }

// Products devuelve el repositorio de productos.
func (s *Store) Products() repository.ProductRepository { return &productView{s: s} }

// PutProduct registra un producto en el catálogo en memoria.
func (s *Store) PutProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

// Run ejecuta fn en exclusión mutua con cualquier otra transacción o lectura.
func (s *Store) Run(ctx context.Context, fn func(
	ctx context.Context,
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{aggs: make(map[string]*entity.StockAggregate), nextSeq: s.seq}
	if err := fn(ctx, &stockView{s: s, tx: tx}, &ledgerView{s: s, tx: tx}); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

// txState escrituras pendientes de una transacción.
type txState struct {
	aggs    map[string]*entity.StockAggregate
	entries []*entity.LedgerEntry
	nextSeq int64
}

func (s *Store) commit(tx *txState) {
	for id, a := range tx.aggs {
		s.aggregates[id] = a
		s.byKey[a.Key()] = id
	}
	for _, e := range tx.entries {
		s.entries[e.ID] = e
		s.byAggregate[e.AggregateID] = append(s.byAggregate[e.AggregateID], e.ID)
		if e.ReversalOf != "" {
			s.reversals[e.ReversalOf] = e.ID
		}
	}
	s.seq = tx.nextSeq
}

func cloneAgg(a *entity.StockAggregate) *entity.StockAggregate {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func cloneEntry(e *entity.LedgerEntry) *entity.LedgerEntry {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

// ─── agregados ───────────────────────────────────────────────────────────────

type stockView struct {
	s  *Store
	tx *txState // nil fuera de transacción
}

func (v *stockView) lock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v *stockView) byID(id string) *entity.StockAggregate {
	if v.tx != nil {
		if a, ok := v.tx.aggs[id]; ok {
			return a
		}
	}
	return v.s.aggregates[id]
}

func (v *stockView) byPair(productID, locationID string) *entity.StockAggregate {
	key := entity.StockKey(productID, locationID)
	if v.tx != nil {
		for _, a := range v.tx.aggs {
			if a.Key() == key {
				return a
			}
		}
	}
	if id, ok := v.s.byKey[key]; ok {
		return v.s.aggregates[id]
	}
	return nil
}

func (v *stockView) Find(_ context.Context, productID, locationID string) (*entity.StockAggregate, error) {
	defer v.lock()()
	return cloneAgg(v.byPair(productID, locationID)), nil
}

// FindForUpdate: el mutex de Run ya da exclusión, no hace falta bloqueo por fila.
func (v *stockView) FindForUpdate(ctx context.Context, productID, locationID string) (*entity.StockAggregate, error) {
	return v.Find(ctx, productID, locationID)
}

func (v *stockView) GetByID(_ context.Context, id string) (*entity.StockAggregate, error) {
	defer v.lock()()
	return cloneAgg(v.byID(id)), nil
}

func (v *stockView) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockAggregate, error) {
	return v.GetByID(ctx, id)
}

func (v *stockView) Create(_ context.Context, agg *entity.StockAggregate) error {
	if v.tx == nil {
		return fmt.Errorf("%w: memory: escritura fuera de transacción", domain.ErrStorage)
	}
	if v.byPair(agg.ProductID, agg.LocationID) != nil {
		return fmt.Errorf("%w: ya existe agregado para %s", domain.ErrConflict, agg.Key())
	}
	if _, ok := v.s.products[agg.ProductID]; !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, agg.ProductID)
	}
	if _, ok := v.s.locations[agg.LocationID]; !ok {
		return fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, agg.LocationID)
	}
	agg.Version = 1
	v.tx.aggs[agg.ID] = cloneAgg(agg)
	return nil
}

func (v *stockView) SetQuantity(_ context.Context, agg *entity.StockAggregate) error {
	if v.tx == nil {
		return fmt.Errorf("%w: memory: escritura fuera de transacción", domain.ErrStorage)
	}
	if agg.Quantity < 0 {
		return fmt.Errorf("%w: cantidad negativa", domain.ErrInsufficientStock)
	}
	current := v.byID(agg.ID)
	if current == nil {
		return fmt.Errorf("%w: agregado %s", domain.ErrNotFound, agg.ID)
	}
	if current.Version != agg.Version {
		return fmt.Errorf("%w: agregado %s modificado por otro escritor", domain.ErrConflict, agg.ID)
	}
	agg.Version++
	v.tx.aggs[agg.ID] = cloneAgg(agg)
	return nil
}

func (v *stockView) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.StockAggregate, error) {
	defer v.lock()()
	var list []*entity.StockAggregate
	for _, a := range v.s.aggregates {
		if a.LocationID == locationID {
			list = append(list, cloneAgg(a))
		}
	}
	slices.SortFunc(list, func(a, b *entity.StockAggregate) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(list, limit, offset), nil
}

func (v *stockView) CountByLocation(_ context.Context, locationID string) (int, error) {
	defer v.lock()()
	return v.s.countByLocation(locationID), nil
}

func (s *Store) countByLocation(locationID string) int {
	n := 0
	for _, a := range s.aggregates {
		if a.LocationID == locationID {
			n++
		}
	}
	return n
}

// ─── libro ───────────────────────────────────────────────────────────────────

type ledgerView struct {
	s  *Store
	tx *txState
}

func (v *ledgerView) lock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v *ledgerView) Append(_ context.Context, entry *entity.LedgerEntry) error {
	if v.tx == nil {
		return fmt.Errorf("%w: memory: escritura fuera de transacción", domain.ErrStorage)
	}
	if _, ok := v.tx.aggs[entry.AggregateID]; !ok {
		if _, ok := v.s.aggregates[entry.AggregateID]; !ok {
			return fmt.Errorf("%w: agregado %s", domain.ErrNotFound, entry.AggregateID)
		}
	}
	if entry.ReversalOf != "" && v.hasReversal(entry.ReversalOf) {
		return fmt.Errorf("%w: asiento %s ya revertido", domain.ErrConflict, entry.ReversalOf)
	}
	v.tx.nextSeq++
	entry.Seq = v.tx.nextSeq
	v.tx.entries = append(v.tx.entries, cloneEntry(entry))
	return nil
}

func (v *ledgerView) hasReversal(entryID string) bool {
	if _, ok := v.s.reversals[entryID]; ok {
		return true
	}
	if v.tx != nil {
		for _, e := range v.tx.entries {
			if e.ReversalOf == entryID {
				return true
			}
		}
	}
	return false
}

func (v *ledgerView) GetByID(_ context.Context, id string) (*entity.LedgerEntry, error) {
	defer v.lock()()
	if e, ok := v.s.entries[id]; ok {
		return cloneEntry(e), nil
	}
	if v.tx != nil {
		for _, e := range v.tx.entries {
			if e.ID == id {
				return cloneEntry(e), nil
			}
		}
	}
	return nil, nil
}

func (v *ledgerView) forAggregate(aggregateID string) []*entity.LedgerEntry {
	var list []*entity.LedgerEntry
	for _, id := range v.s.byAggregate[aggregateID] {
		list = append(list, cloneEntry(v.s.entries[id]))
	}
	if v.tx != nil {
		for _, e := range v.tx.entries {
			if e.AggregateID == aggregateID {
				list = append(list, cloneEntry(e))
			}
		}
	}
	slices.SortStableFunc(list, func(a, b *entity.LedgerEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
	return list
}

func (v *ledgerView) ListForAggregate(_ context.Context, aggregateID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	defer v.lock()()
	list := page(v.forAggregate(aggregateID), limit, offset)
	if list == nil {
		list = []*entity.LedgerEntry{}
	}
	return list, nil
}

func (v *ledgerView) SumForAggregate(_ context.Context, aggregateID string) (int64, int, error) {
	defer v.lock()()
	list := v.forAggregate(aggregateID)
	var sum int64
	for _, e := range list {
		sum += e.QuantityChange
	}
	return sum, len(list), nil
}

func (v *ledgerView) HasReversal(_ context.Context, entryID string) (bool, error) {
	defer v.lock()()
	return v.hasReversal(entryID), nil
}

// ─── ubicaciones y productos ─────────────────────────────────────────────────

type locationView struct{ s *Store }

func (v *locationView) Create(_ context.Context, location *entity.StockLocation) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.locations[location.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *location
	v.s.locations[location.ID] = &cp
	return nil
}

func (v *locationView) GetByID(_ context.Context, id string) (*entity.StockLocation, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (v *locationView) Update(_ context.Context, location *entity.StockLocation) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.locations[location.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *location
	v.s.locations[location.ID] = &cp
	return nil
}

func (v *locationView) List(_ context.Context, limit, offset int) ([]*entity.StockLocation, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	list := make([]*entity.StockLocation, 0, len(v.s.locations))
	for _, l := range v.s.locations {
		cp := *l
		list = append(list, &cp)
	}
	slices.SortFunc(list, func(a, b *entity.StockLocation) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(list, limit, offset), nil
}

func (v *locationView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.countByLocation(id) > 0 {
		return fmt.Errorf("%w: ubicación %s", domain.ErrInUse, id)
	}
	delete(v.s.locations, id)
	return nil
}

type productView struct{ s *Store }

func (v *productView) GetByID(_ context.Context, id string) (*entity.Product, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return list[:0]
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
