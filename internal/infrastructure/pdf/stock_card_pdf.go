// Package pdf genera la tarjeta de stock (kárdex) de un agregado en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Producto + SKU        │  Ubicación + Fecha         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Cantidad / Costo promedio / Versión               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Cambio | Saldo | Costo | Nota         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Conciliación agregado vs libro                      │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 180, Green: 30, Blue: 30}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ inventory.StockCardRenderer = (*StockCardGenerator)(nil)

// StockCardGenerator implementa inventory.StockCardRenderer usando Maroto v2.
type StockCardGenerator struct {
	now func() time.Time
}

// NewStockCardGenerator construye el generador.
func NewStockCardGenerator() *StockCardGenerator { return &StockCardGenerator{now: time.Now} }

// RenderStockCard genera el PDF y devuelve sus bytes.
func (g *StockCardGenerator) RenderStockCard(_ context.Context, card *inventory.StockCard) ([]byte, error) {
	if card == nil || card.Aggregate == nil {
		return nil, fmt.Errorf("pdf: tarjeta de stock vacía")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Tarjeta de stock", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(card, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(card.Aggregate))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(entryRows(card.Entries)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(reconciliationRow(card.Reconciliation))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: producto + SKU (izq) y ubicación + fecha de emisión (der).
func headerRow(card *inventory.StockCard, now time.Time) core.Row {
	productName, sku := card.Aggregate.ProductID, ""
	if card.Product != nil {
		productName = nonEmpty(card.Product.Name, card.Product.ID)
		sku = card.Product.SKU
	}
	locationName := card.Aggregate.LocationID
	if card.Location != nil {
		locationName = nonEmpty(card.Location.Name, card.Location.ID)
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(productName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("SKU: "+nonEmpty(sku, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("TARJETA DE STOCK", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(locationName, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Emitida: "+now.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// summaryRow: estado actual del agregado.
func summaryRow(agg *entity.StockAggregate) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("EXISTENCIA ACTUAL", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Cantidad: %s   |   Costo promedio: $%s   |   Versión: %d",
				formatThousands(fmt.Sprintf("%d", agg.Quantity)),
				agg.AvgCost.StringFixed(2),
				agg.Version,
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de movimientos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Center),
		h("Cambio", 1, align.Right),
		h("Saldo", 2, align.Right),
		h("Costo unit.", 2, align.Right),
		h("Nota", 4, align.Left),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// entryRows: una fila por asiento con saldo acumulado.
func entryRows(entries []*entity.LedgerEntry) []core.Row {
	rows := make([]core.Row, 0, len(entries))
	var balance int64
	for _, e := range entries {
		balance += e.QuantityChange
		changeColor := colorGray
		if e.QuantityChange < 0 {
			changeColor = colorRed
		}
		note := e.Note
		if e.ReversalOf != "" {
			note = "[reverso] " + note
		}
		if e.ActorID != "" {
			note = nonEmpty(note, "—") + " · " + e.ActorID
		}
		rows = append(rows, row.New(7).Add(
			col.New(2).Add(text.New(e.CreatedAt.Format("02/01/2006 15:04"), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(1).Add(text.New(e.Type, props.Text{Size: 7, Align: align.Center, Top: 1})),
			col.New(1).Add(text.New(fmt.Sprintf("%+d", e.QuantityChange), props.Text{
				Size: 7, Align: align.Right, Top: 1, Color: changeColor,
			})),
			col.New(2).Add(text.New(formatThousands(fmt.Sprintf("%d", balance)), props.Text{
				Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 1,
			})),
			col.New(2).Add(text.New("$"+e.UnitCost.StringFixed(2), props.Text{Size: 7, Align: align.Right, Top: 1})),
			col.New(4).Add(text.New(nonEmpty(note, "—"), props.Text{Size: 7, Top: 1, Left: 2})),
		))
	}
	return rows
}

// reconciliationRow: resultado de comparar el agregado con la suma del libro.
func reconciliationRow(rec domaininv.Reconciliation) core.Row {
	status, color := "CONCILIADO", colorPrimary
	if !rec.Consistent() {
		status, color = "DESCUADRE", colorRed
	}
	return row.New(14).Add(
		col.New(8).Add(
			text.New(fmt.Sprintf("Suma del libro: %d   |   Asientos: %d   |   Cantidad del agregado: %d",
				rec.LedgerSum, rec.Entries, rec.Quantity,
			), props.Text{Size: 8, Top: 3, Color: colorGray}),
		),
		col.New(4).Add(
			text.New(status, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 2, Color: color,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatThousands inserta puntos de miles en un entero en texto, respetando el signo.
// Ej: "25000" → "25.000", "-1000000" → "-1.000.000"
func formatThousands(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
