package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de asiento del libro de inventario.
const (
	LedgerTypeAdd    = "add"    // recepción de stock
	LedgerTypeExport = "export" // salida de stock
	LedgerTypeAdjust = "adjust" // ajuste administrativo o reverso
)

// LedgerEntry es un asiento inmutable: registra un único cambio de cantidad sobre un StockAggregate.
// No existe ruta de actualización ni borrado; una corrección es un nuevo asiento compensatorio.
type LedgerEntry struct {
	ID             string
	Seq            int64 // orden de inserción, desempata CreatedAt iguales
	AggregateID    string
	QuantityChange int64 // positivo en entradas, negativo en salidas
	Type           string
	Note           string
	ActorID        string
	UnitCost       decimal.Decimal
	ReversalOf     string // ID del asiento compensado (vacío si no es reverso)
	CreatedAt      time.Time
}

// ValidLedgerType indica si t es un tipo de asiento conocido.
func ValidLedgerType(t string) bool {
	switch t {
	case LedgerTypeAdd, LedgerTypeExport, LedgerTypeAdjust:
		return true
	}
	return false
}
