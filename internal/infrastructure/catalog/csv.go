// Package catalog carga el catálogo de productos desde CSV (sku,name[,id]).
// Los archivos exportados por sistemas contables suelen venir en ISO-8859-1; Load los transcodifica.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Encodings soportados.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// productNamespace espacio para derivar IDs estables desde el SKU.
var productNamespace = uuid.MustParse("6f1c2d0e-8a57-4c1b-9a39-1f5b7c2e4d10")

// ProductID deriva un UUID estable a partir del SKU.
func ProductID(sku string) string {
	return uuid.NewSHA1(productNamespace, []byte(strings.ToUpper(sku))).String()
}

// LoadFile abre path y delega en Load.
func LoadFile(path, encoding string) ([]*entity.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: abrir %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, encoding)
}

// Load lee el CSV. La primera fila es cabecera con columnas sku y name (id opcional).
// Filas sin sku o name se omiten; un SKU repetido es error.
func Load(r io.Reader, encoding string) ([]*entity.Product, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8:
	case EncodingLatin1, "iso-8859-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("catalog: encoding no soportado %q", encoding)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: leer cabecera: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	skuCol, okSKU := cols["sku"]
	nameCol, okName := cols["name"]
	if !okSKU || !okName {
		return nil, errors.New("catalog: la cabecera debe incluir sku y name")
	}
	idCol, hasID := cols["id"]

	now := time.Now()
	seen := map[string]bool{}
	var products []*entity.Product
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: línea %d: %w", line, err)
		}
		sku, name := field(rec, skuCol), field(rec, nameCol)
		if sku == "" || name == "" {
			continue
		}
		if seen[strings.ToUpper(sku)] {
			return nil, fmt.Errorf("catalog: línea %d: sku duplicado %s", line, sku)
		}
		seen[strings.ToUpper(sku)] = true
		id := ""
		if hasID {
			id = field(rec, idCol)
		}
		if id == "" {
			id = ProductID(sku)
		} else if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("catalog: línea %d: id inválido %q", line, id)
		}
		products = append(products, &entity.Product{ID: id, SKU: sku, Name: name, CreatedAt: now})
	}
	return products, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
