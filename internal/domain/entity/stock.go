package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockAggregate es la cantidad disponible de un producto en una ubicación.
// Existe exactamente uno por par (ProductID, LocationID); sólo el servicio de inventario modifica Quantity.
type StockAggregate struct {
	ID         string
	ProductID  string
	LocationID string
	Quantity   int64           // nunca negativa
	AvgCost    decimal.Decimal // costo promedio ponderado de las entradas valorizadas
	Version    int64           // se incrementa en cada escritura (control optimista)
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key devuelve la clave compuesta producto+ubicación.
func (s *StockAggregate) Key() string {
	return StockKey(s.ProductID, s.LocationID)
}

// StockKey construye la clave compuesta de un agregado.
func StockKey(productID, locationID string) string {
	return productID + "|" + locationID
}
