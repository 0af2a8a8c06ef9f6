package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeInvalidText          = "22P02"
)

// pgCode devuelve el SQLSTATE del error o "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// mapError traduce errores del driver a errores de dominio.
// Carreras de escritura (único, serialización, deadlock, lock_timeout) -> ErrConflict (el servicio reintenta);
// FK inexistente -> ErrNotFound; id mal formado (22P02) -> ErrInvalidInput; CHECK quantity >= 0 -> ErrInsufficientStock; el resto -> ErrStorage.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s: %w", domain.ErrNotFound, op, err)
	case codeInvalidText:
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, op, err)
	case codeCheckViolation:
		return fmt.Errorf("%w: %s: %w", domain.ErrInsufficientStock, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// pageLimit convierte limit <= 0 en NULL (LIMIT NULL = sin límite en PostgreSQL).
func pageLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
