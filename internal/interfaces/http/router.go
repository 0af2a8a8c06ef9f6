package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/observability"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC *usecase.LocationUseCase
	Ledger     *inventory.LedgerService
	StockCard  *inventory.StockCardUseCase
	Metrics    *observability.Metrics
	Logger     *zerolog.Logger
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	// Métricas (público)
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Locations
	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC, deps.Ledger, log)
	locations.Post("/", locationHandler.Create)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Put("/:id", locationHandler.Update)
	locations.Delete("/:id", adminOnly, locationHandler.Delete)
	locations.Get("/:id/stock", locationHandler.ListStock)

	// Inventory: agregados y libro
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.StockCard, log)
	invGroup.Get("/", inventoryHandler.Find)
	invGroup.Post("/receive", inventoryHandler.Receive)
	invGroup.Post("/release", inventoryHandler.Release)
	invGroup.Get("/:id", inventoryHandler.GetByID)
	invGroup.Get("/:id/ledger.pdf", inventoryHandler.LedgerPDF)
	invGroup.Get("/:id/ledger", inventoryHandler.Ledger)
	invGroup.Get("/:id/reconcile", inventoryHandler.Reconcile)
	invGroup.Post("/:id/adjustments", adminOnly, inventoryHandler.Adjust)

	// Ledger: correcciones por asiento compensatorio
	ledger := protected.Group("/ledger")
	ledger.Post("/:entryID/reverse", adminOnly, inventoryHandler.Reverse)
}
