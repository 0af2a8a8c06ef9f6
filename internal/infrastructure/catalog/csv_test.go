package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestLoad_UTF8ConIDDerivado(t *testing.T) {
	in := "sku,name\nTOR-01,Tornillo\n,sin sku\nTUE-02,Tuerca\n"
	products, err := Load(strings.NewReader(in), EncodingUTF8)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "TOR-01", products[0].SKU)
	assert.Equal(t, ProductID("TOR-01"), products[0].ID)
	assert.Equal(t, ProductID("tor-01"), products[0].ID, "el id no depende de mayúsculas")
}

func TestLoad_RespetaColumnaID(t *testing.T) {
	in := "id,sku,name\n0b7e2a4c-5d1f-4e8a-9c3b-2f6d8e1a7b90,TOR-01,Tornillo\n"
	products, err := Load(strings.NewReader(in), "")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "0b7e2a4c-5d1f-4e8a-9c3b-2f6d8e1a7b90", products[0].ID)

	_, err = Load(strings.NewReader("id,sku,name\nabc,TOR-01,Tornillo\n"), "")
	assert.Error(t, err, "id que no es UUID")
}

func TestLoad_Latin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String("sku,name\nCAF-01,Café de Nariño\n")
	require.NoError(t, err)

	products, err := Load(bytes.NewReader([]byte(raw)), EncodingLatin1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Café de Nariño", products[0].Name)
}

func TestLoad_Errores(t *testing.T) {
	_, err := Load(strings.NewReader("codigo,nombre\n"), "")
	assert.Error(t, err, "cabecera sin sku/name")

	_, err = Load(strings.NewReader("sku,name\nA,x\na,y\n"), "")
	assert.Error(t, err, "sku duplicado")

	_, err = Load(strings.NewReader("sku,name\n"), "ebcdic")
	assert.Error(t, err)
}
