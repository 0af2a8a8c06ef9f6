package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/observability"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// storage repositorios y TxRunner del backend elegido.
type storage struct {
	txRunner     inventory.TxRunner
	stockRepo    repository.StockRepository
	ledgerRepo   repository.LedgerRepository
	locationRepo repository.LocationRepository
	productRepo  repository.ProductRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Ledger.StorageDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var store storage
	switch cfg.Ledger.StorageDriver {
	case config.StorageDriverMemory:
		mem := memory.NewStore()
		if cfg.Ledger.ProductsFile != "" {
			products, err := catalog.LoadFile(cfg.Ledger.ProductsFile, cfg.Ledger.ProductsEncoding)
			if err != nil {
				log.Fatal().Err(err).Msg("cargar catálogo de productos")
			}
			for _, p := range products {
				mem.PutProduct(p)
			}
			log.Info().Int("products", len(products)).Msg("catálogo cargado en memoria")
		} else {
			log.Warn().Msg("driver memory sin PRODUCTS_FILE: toda recepción fallará con producto no encontrado")
		}
		store = storage{
			txRunner:     mem,
			stockRepo:    mem.Stock(),
			ledgerRepo:   mem.Ledger(),
			locationRepo: mem.Locations(),
			productRepo:  mem.Products(),
			close:        func() {},
		}
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		store = storage{
			txRunner:     postgres.NewTxRunner(pool),
			stockRepo:    postgres.NewStockRepository(pool),
			ledgerRepo:   postgres.NewLedgerRepository(pool),
			locationRepo: postgres.NewLocationRepository(pool),
			productRepo:  postgres.NewProductRepository(pool),
			close:        pool.Close,
		}
	}
	defer store.close()

	// Idempotencia: sólo con Redis configurado.
	var idem inventory.IdempotencyStore
	if cfg.Redis.Enabled() {
		client, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		idem = cache.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
	}

	metrics := observability.NewMetrics()
	ledger := inventory.NewLedgerService(
		store.txRunner, store.stockRepo, store.ledgerRepo, store.productRepo, store.locationRepo,
		inventory.Options{
			MaxAttempts: cfg.Ledger.MaxAttempts,
			Idempotency: idem,
			Metrics:     metrics,
			Logger:      log.Zerolog(),
		},
	)
	locationUC := usecase.NewLocationUseCase(store.locationRepo)
	stockCardUC := inventory.NewStockCardUseCase(ledger, store.productRepo, store.locationRepo, infrapdf.NewStockCardGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.Docs.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.Docs.SwaggerFile,
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	} else {
		log.Warn().Str("file", cfg.Docs.SwaggerFile).Msg("swagger no disponible")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Ledger.StorageDriver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		LocationUC: locationUC,
		Ledger:     ledger,
		StockCard:  stockCardUC,
		Metrics:    metrics,
		Logger:     log.Component("http"),
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
