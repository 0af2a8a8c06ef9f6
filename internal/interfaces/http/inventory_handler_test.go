package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/observability"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

const testProductID = "3f2a8c1e-6b4d-4e7f-9a10-5c2d7e8b9f01"

type testServer struct {
	app   *fiber.App
	store *memory.Store
}

// newTestServer arma el router completo sobre el backend en memoria y un Redis falso.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(&entity.Product{ID: testProductID, SKU: "TOR-01", Name: "Tornillo"})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := observability.NewMetrics()
	ledger := inventory.NewLedgerService(store, store.Stock(), store.Ledger(), store.Products(), store.Locations(), inventory.Options{
		Idempotency: cache.NewIdempotencyStore(client, time.Hour),
		Metrics:     metrics,
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		LocationUC: usecase.NewLocationUseCase(store.Locations()),
		Ledger:     ledger,
		StockCard:  inventory.NewStockCardUseCase(ledger, store.Products(), store.Locations(), pdf.NewStockCardGenerator()),
		Metrics:    metrics,
		JWTSecret:  testJWTSecret,
	})
	return &testServer{app: app, store: store}
}

// do envía la petición con el rol dado (vacío = sin token) y devuelve status y cuerpo.
func (s *testServer) do(t *testing.T, method, path, role string, body any, headers ...string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) createLocation(t *testing.T, name string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/locations", pkgjwt.RoleOperator, dto.CreateLocationRequest{Name: name})
	require.Equal(t, http.StatusCreated, status, string(body))
	var loc dto.LocationResponse
	require.NoError(t, json.Unmarshal(body, &loc))
	return loc.ID
}

func (s *testServer) receive(t *testing.T, locationID string, qty int64, headers ...string) (int, dto.MovementResponse, []byte) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/inventory/receive", pkgjwt.RoleOperator,
		dto.ReceiveStockRequest{ProductID: testProductID, LocationID: locationID, Quantity: qty}, headers...)
	var out dto.MovementResponse
	if status < 300 {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return status, out, body
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Code
}

// ──────────────────────────────────────────────────────────────────────────────
// receive / release
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_PrimeraVezCrea201LuegoActualiza200(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, first, _ := s.receive(t, loc, 10)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, first.Created)
	assert.Equal(t, int64(10), first.Stock.Quantity)
	assert.Equal(t, "initial stock", first.Entry.Note)
	assert.Equal(t, testUserID, first.Entry.ActorID)

	status, second, _ := s.receive(t, loc, 5)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, second.Created)
	assert.Equal(t, first.Stock.ID, second.Stock.ID)
	assert.Equal(t, int64(15), second.Stock.Quantity)
}

func TestReceive_SinToken401(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodPost, "/api/inventory/receive", "", dto.ReceiveStockRequest{ProductID: testProductID, LocationID: uuid.NewString(), Quantity: 1})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestReceive_CantidadCeroEsValidacion(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, _, body := s.receive(t, loc, 0)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestReceive_ProductoInexistente404(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, body := s.do(t, http.MethodPost, "/api/inventory/receive", pkgjwt.RoleOperator,
		dto.ReceiveStockRequest{ProductID: uuid.NewString(), LocationID: loc, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestReceive_IDsMalFormadosSonValidacion(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, body := s.do(t, http.MethodPost, "/api/inventory/receive", pkgjwt.RoleOperator,
		dto.ReceiveStockRequest{ProductID: "abc", LocationID: loc, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	status, body = s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator,
		dto.ReleaseStockRequest{ProductID: testProductID, LocationID: "abc", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestReceive_CantidadFueraDeRangoEsValidacion(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 1)

	status, _, body := s.receive(t, loc, math.MaxInt64)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	status, body = s.do(t, http.MethodPost, "/api/inventory/"+created.Stock.ID+"/adjustments", pkgjwt.RoleAdmin,
		dto.AdjustmentRequest{QuantityChange: math.MaxInt64, Note: "carga"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	agg, err := s.store.Stock().Find(t.Context(), testProductID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.Quantity)
}

func TestReceive_CuerpoInvalido400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/receive", strings.NewReader("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleOperator))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRelease_StockInsuficienteNoCambiaNada(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 3)

	status, body := s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator,
		dto.ReleaseStockRequest{ProductID: testProductID, LocationID: loc, Quantity: 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, body))

	status, body = s.do(t, http.MethodGet, "/api/inventory/"+created.Stock.ID+"/ledger", pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var list dto.LedgerListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 1)
}

func TestRelease_SinAgregado404(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, body := s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator,
		dto.ReleaseStockRequest{ProductID: testProductID, LocationID: loc, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestRelease_DescuentaYRegistraExport(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	s.receive(t, loc, 10)

	status, body := s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator,
		dto.ReleaseStockRequest{ProductID: testProductID, LocationID: loc, Quantity: 4, Note: "pedido 77"})
	require.Equal(t, http.StatusOK, status, string(body))
	var out dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, int64(6), out.Stock.Quantity)
	assert.Equal(t, int64(-4), out.Entry.QuantityChange)
	assert.Equal(t, entity.LedgerTypeExport, out.Entry.Type)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestFind_PorProductoYUbicacion(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, _ := s.do(t, http.MethodGet, "/api/inventory?product_id="+testProductID+"&location_id="+loc, pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, status)

	s.receive(t, loc, 2)
	status, body := s.do(t, http.MethodGet, "/api/inventory?product_id="+testProductID+"&location_id="+loc, pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var stock dto.StockResponse
	require.NoError(t, json.Unmarshal(body, &stock))
	assert.Equal(t, int64(2), stock.Quantity)

	status, _ = s.do(t, http.MethodGet, "/api/inventory?product_id="+testProductID, pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReconcile_AgregadoConsistente(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 10)
	s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator,
		dto.ReleaseStockRequest{ProductID: testProductID, LocationID: loc, Quantity: 3})

	status, body := s.do(t, http.MethodGet, "/api/inventory/"+created.Stock.ID+"/reconcile", pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var rec dto.ReconcileResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(7), rec.Quantity)
	assert.Equal(t, int64(7), rec.LedgerSum)
	assert.Equal(t, 2, rec.Entries)
}

func TestLedgerPDF_DevuelvePDF(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/"+created.Stock.ID+"/ledger.pdf", nil)
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleOperator))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestGetByID_Inexistente404(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/api/inventory/"+uuid.NewString(), pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestRutas_IDMalFormado400(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		method, path, role string
		body               any
	}{
		{http.MethodGet, "/api/inventory/abc", pkgjwt.RoleOperator, nil},
		{http.MethodGet, "/api/inventory/abc/ledger", pkgjwt.RoleOperator, nil},
		{http.MethodGet, "/api/inventory/abc/reconcile", pkgjwt.RoleOperator, nil},
		{http.MethodPost, "/api/inventory/abc/adjustments", pkgjwt.RoleAdmin, dto.AdjustmentRequest{QuantityChange: 1, Note: "x"}},
		{http.MethodPost, "/api/ledger/abc/reverse", pkgjwt.RoleAdmin, nil},
		{http.MethodGet, "/api/locations/abc", pkgjwt.RoleOperator, nil},
		{http.MethodGet, "/api/locations/abc/stock", pkgjwt.RoleOperator, nil},
		{http.MethodGet, "/api/inventory?product_id=abc&location_id=abc", pkgjwt.RoleOperator, nil},
	}
	for _, tc := range cases {
		status, body := s.do(t, tc.method, tc.path, tc.role, tc.body)
		assert.Equal(t, http.StatusBadRequest, status, tc.path)
		assert.Equal(t, "VALIDATION", errorCode(t, body), tc.path)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajustes y reversos (sólo admin)
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjust_OperadorBloqueado403(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 10)

	status, _ := s.do(t, http.MethodPost, "/api/inventory/"+created.Stock.ID+"/adjustments", pkgjwt.RoleOperator,
		dto.AdjustmentRequest{QuantityChange: -2, Note: "merma"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAdjust_AdminAplicaEnLaMismaTransaccion(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 10)

	status, body := s.do(t, http.MethodPost, "/api/inventory/"+created.Stock.ID+"/adjustments", pkgjwt.RoleAdmin,
		dto.AdjustmentRequest{QuantityChange: -2, Note: "merma"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var out dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, int64(8), out.Stock.Quantity)
	assert.Equal(t, entity.LedgerTypeAdjust, out.Entry.Type)

	status, body = s.do(t, http.MethodPost, "/api/inventory/"+created.Stock.ID+"/adjustments", pkgjwt.RoleAdmin,
		dto.AdjustmentRequest{QuantityChange: -50, Note: "error"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, body))
}

func TestAdjust_SinNotaEsValidacion(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 10)

	status, body := s.do(t, http.MethodPost, "/api/inventory/"+created.Stock.ID+"/adjustments", pkgjwt.RoleAdmin,
		dto.AdjustmentRequest{QuantityChange: 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestReverse_SoloUnaVez(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	_, created, _ := s.receive(t, loc, 10)
	path := "/api/ledger/" + created.Entry.ID + "/reverse"

	status, body := s.do(t, http.MethodPost, path, pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	var out dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, int64(0), out.Stock.Quantity)
	assert.Equal(t, int64(-10), out.Entry.QuantityChange)
	assert.Equal(t, created.Entry.ID, out.Entry.ReversalOf)

	status, body = s.do(t, http.MethodPost, path, pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", errorCode(t, body))
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_IdempotencyKeyRepetidaRetorna409(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")

	status, _, _ := s.receive(t, loc, 10, apphttp.HeaderIdempotencyKey, "abc-123")
	require.Equal(t, http.StatusCreated, status)

	status, _, body := s.receive(t, loc, 10, apphttp.HeaderIdempotencyKey, "abc-123")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "IDEMPOTENCY_REPLAY", errorCode(t, body))

	agg, err := s.store.Stock().Find(t.Context(), testProductID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(10), agg.Quantity, "la repetición no debe aplicarse")
}

func TestRelease_FalloLiberaLaClave(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	s.receive(t, loc, 1)
	req := dto.ReleaseStockRequest{ProductID: testProductID, LocationID: loc, Quantity: 2}

	status, _ := s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator, req, apphttp.HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusBadRequest, status)

	s.receive(t, loc, 5)
	status, body := s.do(t, http.MethodPost, "/api/inventory/release", pkgjwt.RoleOperator, req, apphttp.HeaderIdempotencyKey, "k1")
	assert.Equal(t, http.StatusOK, status, string(body))
}

// ──────────────────────────────────────────────────────────────────────────────
// Métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestMetrics_ExponeMovimientos(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "Bodega")
	s.receive(t, loc, 1)

	status, body := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `stock_movements_total{result="ok",type="add"} 1`)
}
