package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-invoice/internal/bootstrap"
	"go-pos-invoice/internal/config"
	"go-pos-invoice/internal/events"
	"go-pos-invoice/internal/handler"
	"go-pos-invoice/internal/middleware"
	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/internal/service"
	"go-pos-invoice/internal/ws"
	"go-pos-invoice/pkg/database"
	"go-pos-invoice/pkg/jwt"
	"go-pos-invoice/pkg/logger"
	"go-pos-invoice/pkg/telemetry"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.IsDevelopment(), config.ServiceName)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.Options{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Endpoint:       cfg.OtelEndpoint,
		AuthHeader:     cfg.OtelAuthHeader,
	})
	if err != nil {
		zl.Error("tracing disabled", zap.Error(err))
	}

	// 2. Storage
	var repos repository.Repositories
	switch cfg.StoreDriver {
	case config.DriverMemory:
		repos, _ = repository.NewMemoryRepositories()
		zl.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := database.Open(cfg.Database, zl)
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close(db)
		if err := database.Migrate(db); err != nil {
			zl.Fatal("failed to migrate database", zap.Error(err))
		}
		repos = repository.NewGormRepositories(db)
	}

	// 3. Seed default privileges, roles, admin user and invoice counter
	if err := bootstrap.Run(ctx, repos, bootstrap.Options{
		AdminEmail:       cfg.AdminEmail,
		AdminPassword:    cfg.AdminPassword,
		SeedDemoProducts: cfg.SeedDemoProducts,
	}, zl); err != nil {
		zl.Fatal("bootstrap failed", zap.Error(err))
	}

	// 4. Event fan-out: websocket hub, plus Kafka when a broker is configured
	wsHub := ws.NewHub(zl.Named("ws"))
	go wsHub.Run(ctx)

	publishers := events.Multi{wsHub}
	var kafkaPublisher *events.KafkaPublisher
	if cfg.KafkaBroker != "" {
		kafkaPublisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaInvoiceTopic))
		publishers = append(publishers, kafkaPublisher)
		zl.Info("kafka events enabled", zap.String("broker", cfg.KafkaBroker), zap.String("topic", cfg.KafkaInvoiceTopic))
	}

	// 5. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	invoiceService := service.NewInvoiceService(repos, service.InvoiceServiceConfig{
		Timeout:   cfg.InvoiceTimeout,
		Logger:    zl.Named("invoice"),
		Publisher: publishers,
	})
	catalogService := service.NewCatalogService(repos.Products)
	authService := service.NewAuthService(repos.Users, tokens, zl.Named("auth"))

	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	productHandler := handler.NewProductHandler(catalogService)
	authHandler := handler.NewAuthHandler(authService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "POS Invoice v" + config.ServiceVersion,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/validate-token", authHandler.ValidateToken)

	protected := api.Group("", middleware.RequireAuth(repos.Users, tokens))

	protected.Get("/products", middleware.RequireAnyPrivilege(model.PrivilegeProductView, model.PrivilegeInvoiceCreate), productHandler.GetProducts)
	protected.Get("/products/:id", middleware.RequireAnyPrivilege(model.PrivilegeProductView, model.PrivilegeInvoiceCreate), productHandler.GetProduct)

	protected.Post("/invoices", middleware.RequirePrivilege(model.PrivilegeInvoiceCreate), invoiceHandler.CreateInvoice)
	protected.Get("/invoices", middleware.RequirePrivilege(model.PrivilegeInvoiceView), invoiceHandler.GetInvoices)
	protected.Get("/invoices/:id", middleware.RequirePrivilege(model.PrivilegeInvoiceView), invoiceHandler.GetInvoice)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", wsHub.Handler())

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			zl.Warn("kafka writer close", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Warn("tracing shutdown", zap.Error(err))
	}

	zl.Info("server exited")
}
