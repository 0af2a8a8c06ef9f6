// seed_catalog genera un script SQL para poblar products (y opcionalmente stock_locations)
// a partir de un CSV de catálogo (sku,name[,id]).
//
// Uso: go run ./cmd/seed_catalog -products productos.csv [-encoding latin1] [-locations ubicaciones.csv]
// Escribe: migrations/900_seed_catalog.sql
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/catalog"
)

func main() {
	productsPath := flag.String("products", "productos.csv", "CSV de productos (sku,name[,id])")
	locationsPath := flag.String("locations", "", "CSV opcional de ubicaciones (name,address,contact)")
	encoding := flag.String("encoding", catalog.EncodingUTF8, "utf-8 | latin1")
	outName := flag.String("out", "900_seed_catalog.sql", "nombre del script en migrations/")
	flag.Parse()

	products, err := catalog.LoadFile(*productsPath, *encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer productos: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "migrations", *outName)
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "-- Catálogo generado desde %s\n\n", filepath.Base(*productsPath))
	out.WriteString("-- 1. Productos\n")
	for _, p := range products {
		fmt.Fprintf(out, "INSERT INTO products (id, sku, name) VALUES ('%s', '%s', '%s')\n",
			p.ID, escapeSQL(p.SKU), escapeSQL(p.Name))
		out.WriteString("ON CONFLICT (id) DO UPDATE SET sku = EXCLUDED.sku, name = EXCLUDED.name;\n")
	}

	locations := 0
	if *locationsPath != "" {
		locations, err = writeLocations(out, *locationsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Leer ubicaciones: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generado %s: %d productos, %d ubicaciones\n", outPath, len(products), locations)
}

// writeLocations agrega las ubicaciones; el ID se deriva del nombre para que el script sea re-ejecutable.
func writeLocations(out io.Writer, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, err
	}
	fmt.Fprint(out, "\n-- 2. Ubicaciones\n")
	n := 0
	for i, rec := range records {
		if i == 0 || len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		name := strings.TrimSpace(rec[0])
		address, contact := col(rec, 1), col(rec, 2)
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("stock-location:"+strings.ToLower(name)))
		fmt.Fprintf(out, "INSERT INTO stock_locations (id, name, address, contact) VALUES ('%s', '%s', '%s', '%s')\n",
			id, escapeSQL(name), escapeSQL(address), escapeSQL(contact))
		fmt.Fprint(out, "ON CONFLICT (id) DO UPDATE SET address = EXCLUDED.address, contact = EXCLUDED.contact;\n")
		n++
	}
	return n, nil
}

func col(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
