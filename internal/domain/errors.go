package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInUse             = errors.New("recurso referenciado, no se puede eliminar")

	// ErrConflict: un escritor concurrente invalidó la lectura (versión obsoleta, unique race,
	// fallo de serialización). El servicio reintenta antes de devolverlo.
	ErrConflict = errors.New("conflicto de concurrencia")

	// ErrStorage envuelve cualquier fallo de persistencia. Nunca se reintenta en el servicio.
	ErrStorage = errors.New("error de almacenamiento")

	// ErrIdempotencyReplay: la Idempotency-Key ya fue usada.
	ErrIdempotencyReplay = errors.New("solicitud ya procesada")
)

// IsBusiness indica si err es un resultado de negocio esperado (no un fallo de infraestructura).
func IsBusiness(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidInput)
}
