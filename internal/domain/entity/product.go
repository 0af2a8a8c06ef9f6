package entity

import "time"

// Product es la vista mínima del catálogo que necesita el inventario (sólo lectura).
type Product struct {
	ID        string
	SKU       string
	Name      string
	CreatedAt time.Time
}
