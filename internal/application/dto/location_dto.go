package dto

import "time"

// CreateLocationRequest entrada para crear una ubicación de stock.
type CreateLocationRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Address string `json:"address" validate:"max=500"`
	Contact string `json:"contact" validate:"max=200"`
}

// UpdateLocationRequest entrada para actualizar los campos descriptivos de una ubicación.
type UpdateLocationRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Contact *string `json:"contact" validate:"omitempty,max=200"`
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationListResponse lista paginada de ubicaciones.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
