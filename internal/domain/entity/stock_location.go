package entity

import "time"

// StockLocation representa una bodega o tienda donde se almacena inventario.
// Sólo los campos descriptivos cambian después de que un agregado la referencia.
type StockLocation struct {
	ID        string
	Name      string
	Address   string
	Contact   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
