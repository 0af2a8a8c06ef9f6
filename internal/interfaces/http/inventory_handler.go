package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// HeaderIdempotencyKey cabecera opcional de las escrituras.
const HeaderIdempotencyKey = "Idempotency-Key"

// InventoryHandler maneja agregados de stock y el libro de inventario (protegido).
type InventoryHandler struct {
	ledger    *inventory.LedgerService
	stockCard *inventory.StockCardUseCase
	log       *zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerService, stockCard *inventory.StockCardUseCase, log *zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, stockCard: stockCard, log: log}
}

// Receive godoc
// @Summary      Recibir stock (entrada)
// @Description  Crea el agregado en el primer abastecimiento del par producto/ubicación (201) o lo incrementa (200).
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                   false  "Clave de idempotencia"
// @Param        body             body    dto.ReceiveStockRequest  true   "product_id, location_id, quantity, unit_cost opcional"
// @Success      200   {object}  dto.MovementResponse
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/receive [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ReceiveStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if msg := validationMessage(in); msg != "" {
		return validationError(c, msg)
	}
	res, err := h.ledger.ReceiveFromRequest(c.Context(), userID, c.Get(HeaderIdempotencyKey), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(inventory.ToMovementResponse(res))
}

// Release godoc
// @Summary      Despachar stock (salida)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                   false  "Clave de idempotencia"
// @Param        body             body    dto.ReleaseStockRequest  true   "product_id, location_id, quantity"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse "INSUFFICIENT_STOCK o VALIDATION"
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ReleaseStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if msg := validationMessage(in); msg != "" {
		return validationError(c, msg)
	}
	res, err := h.ledger.ReleaseFromRequest(c.Context(), userID, c.Get(HeaderIdempotencyKey), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(inventory.ToMovementResponse(res))
}

// Find godoc
// @Summary      Buscar agregado por producto y ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  string  true  "ID del producto"
// @Param        location_id  query  string  true  "ID de la ubicación"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) Find(c *fiber.Ctx) error {
	productID, locationID := c.Query("product_id"), c.Query("location_id")
	if productID == "" || locationID == "" {
		return validationError(c, "product_id y location_id son requeridos")
	}
	if uuid.Validate(productID) != nil || uuid.Validate(locationID) != nil {
		return validationError(c, "product_id y location_id deben ser uuid")
	}
	agg, err := h.ledger.Find(c.Context(), productID, locationID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(inventory.ToStockResponse(agg))
}

// GetByID godoc
// @Summary      Obtener agregado por ID
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del agregado"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetByID(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	agg, err := h.ledger.GetAggregate(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(inventory.ToStockResponse(agg))
}

// Ledger godoc
// @Summary      Historial del libro de un agregado
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del agregado"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.LedgerListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/ledger [get]
func (h *InventoryHandler) Ledger(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	page, msg := pageFromQuery(c)
	if msg != "" {
		return validationError(c, msg)
	}
	entries, err := h.ledger.ListForAggregate(c.Context(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(inventory.ToLedgerListResponse(entries, page.Limit, page.Offset))
}

// LedgerPDF godoc
// @Summary      Tarjeta de stock en PDF
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del agregado"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/ledger.pdf [get]
func (h *InventoryHandler) LedgerPDF(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	pdf, err := h.stockCard.ExportPDF(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="stock-`+id+`.pdf"`)
	return c.Send(pdf)
}

// Reconcile godoc
// @Summary      Conciliar agregado contra su libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del agregado"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	rec, err := h.ledger.Reconcile(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(inventory.ToReconcileResponse(rec))
}

// Adjust godoc
// @Summary      Ajuste administrativo de cantidad (sólo admin)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                 true   "ID del agregado"
// @Param        Idempotency-Key  header  string                 false  "Clave de idempotencia"
// @Param        body             body    dto.AdjustmentRequest  true   "quantity_change con signo y nota"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if msg := validationMessage(in); msg != "" {
		return validationError(c, msg)
	}
	res, err := h.ledger.AdjustFromRequest(c.Context(), id, userID, c.Get(HeaderIdempotencyKey), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(res))
}

// Reverse godoc
// @Summary      Revertir un asiento con uno compensatorio (sólo admin)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        entryID          path    string                   true   "ID del asiento"
// @Param        Idempotency-Key  header  string                   false  "Clave de idempotencia"
// @Param        body             body    dto.ReverseEntryRequest  false  "Nota opcional"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse "asiento ya revertido"
// @Router       /api/ledger/{entryID}/reverse [post]
func (h *InventoryHandler) Reverse(c *fiber.Ctx) error {
	entryID, ok := idParam(c, "entryID")
	if !ok {
		return invalidID(c, "entryID")
	}
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ReverseEntryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	if msg := validationMessage(in); msg != "" {
		return validationError(c, msg)
	}
	res, err := h.ledger.ReverseFromRequest(c.Context(), entryID, userID, c.Get(HeaderIdempotencyKey), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(res))
}
