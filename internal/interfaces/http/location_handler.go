package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// LocationHandler maneja las peticiones HTTP para ubicaciones de stock (protegido).
type LocationHandler struct {
	uc     *usecase.LocationUseCase
	ledger *inventory.LedgerService
	log    *zerolog.Logger
}

// NewLocationHandler construye el handler.
func NewLocationHandler(uc *usecase.LocationUseCase, ledger *inventory.LedgerService, log *zerolog.Logger) *LocationHandler {
	return &LocationHandler{uc: uc, ledger: ledger, log: log}
}

// Create godoc
// @Summary      Crear ubicación
// @Tags         locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLocationRequest  true  "Datos de la ubicación"
// @Success      201   {object}  dto.LocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/locations [post]
func (h *LocationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateLocationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if msg := validationMessage(in); msg != "" {
		return validationError(c, msg)
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener ubicación por ID
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la ubicación"
// @Success      200  {object}  dto.LocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/locations/{id} [get]
func (h *LocationHandler) GetByID(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	out, err := h.uc.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar ubicaciones
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.LocationListResponse
// @Router       /api/locations [get]
func (h *LocationHandler) List(c *fiber.Ctx) error {
	page, msg := pageFromQuery(c)
	if msg != "" {
		return validationError(c, msg)
	}
	out, err := h.uc.List(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar campos descriptivos de una ubicación
// @Tags         locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la ubicación"
// @Param        body  body  dto.UpdateLocationRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.LocationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/locations/{id} [put]
func (h *LocationHandler) Update(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var in dto.UpdateLocationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if msg := validationMessage(in); msg != "" {
		return validationError(c, msg)
	}
	out, err := h.uc.Update(c.Context(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar ubicación (sólo admin, sin agregados de stock)
// @Tags         locations
// @Security     Bearer
// @Param        id   path  string  true  "ID de la ubicación"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/locations/{id} [delete]
func (h *LocationHandler) Delete(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	if err := h.uc.Delete(c.Context(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListStock godoc
// @Summary      Agregados de stock de una ubicación
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la ubicación"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.StockListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/stock [get]
func (h *LocationHandler) ListStock(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	page, msg := pageFromQuery(c)
	if msg != "" {
		return validationError(c, msg)
	}
	list, total, err := h.ledger.ListByLocation(c.Context(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(inventory.ToStockListResponse(list, total, page.Limit, page.Offset))
}
