package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

func TestLocations_CrearObtenerListar(t *testing.T) {
	s := newTestServer(t)
	id := s.createLocation(t, "Bodega norte")

	status, body := s.do(t, http.MethodGet, "/api/locations/"+id, pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var loc dto.LocationResponse
	require.NoError(t, json.Unmarshal(body, &loc))
	assert.Equal(t, "Bodega norte", loc.Name)

	s.createLocation(t, "Tienda centro")
	status, body = s.do(t, http.MethodGet, "/api/locations?limit=1", pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var list dto.LocationListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page.Limit)
}

func TestLocations_CrearSinNombreEsValidacion(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodPost, "/api/locations", pkgjwt.RoleOperator, dto.CreateLocationRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestLocations_ListarConLimiteInvalido(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodGet, "/api/locations?limit=9999", pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLocations_ActualizarCamposDescriptivos(t *testing.T) {
	s := newTestServer(t)
	id := s.createLocation(t, "Bodega")
	contact := "Ana 555-0101"

	status, body := s.do(t, http.MethodPut, "/api/locations/"+id, pkgjwt.RoleOperator, dto.UpdateLocationRequest{Contact: &contact})
	require.Equal(t, http.StatusOK, status, string(body))
	var loc dto.LocationResponse
	require.NoError(t, json.Unmarshal(body, &loc))
	assert.Equal(t, id, loc.ID)
	assert.Equal(t, "Bodega", loc.Name)
	assert.Equal(t, contact, loc.Contact)

	status, _ = s.do(t, http.MethodPut, "/api/locations/"+uuid.NewString(), pkgjwt.RoleOperator, dto.UpdateLocationRequest{Contact: &contact})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLocations_EliminarReferenciadaRetorna409(t *testing.T) {
	s := newTestServer(t)
	id := s.createLocation(t, "Bodega")
	s.receive(t, id, 1)

	status, _ := s.do(t, http.MethodDelete, "/api/locations/"+id, pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusForbidden, status, "sólo admin elimina ubicaciones")

	status, body := s.do(t, http.MethodDelete, "/api/locations/"+id, pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LOCATION_IN_USE", errorCode(t, body))
}

func TestLocations_EliminarSinReferencias(t *testing.T) {
	s := newTestServer(t)
	id := s.createLocation(t, "Temporal")

	status, _ := s.do(t, http.MethodDelete, "/api/locations/"+id, pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, "/api/locations/"+id, pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLocations_StockPorUbicacion(t *testing.T) {
	s := newTestServer(t)
	id := s.createLocation(t, "Bodega")
	s.receive(t, id, 4)

	status, body := s.do(t, http.MethodGet, "/api/locations/"+id+"/stock", pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var list dto.StockListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(4), list.Items[0].Quantity)
	assert.Equal(t, 1, list.Page.Total)

	status, _ = s.do(t, http.MethodGet, "/api/locations/"+uuid.NewString()+"/stock", pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
