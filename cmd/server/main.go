package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/api/handlers"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/api/middleware"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/database"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	job "github.com/aydiegithub/ai-agent-for-social-content/internal/jobs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/logger"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/metrics"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/oauthstate"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/payment"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/queue"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/storage"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	dsn := cfg.PostgresURI
	if cfg.DBDriver == database.DriverSQLite {
		dsn = cfg.SQLitePath
	}
	db, err := database.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	cipher, err := utils.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		zlog.Fatal("Token encryption key is not usable", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	images, err := storage.NewR2(ctx, cfg.R2)
	if err != nil {
		zlog.Fatal("Failed to configure object storage", zap.Error(err))
	}

	aiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		zlog.Fatal("Failed to create AI client", zap.Error(err))
	}
	gemini := gateway.NewGemini(aiClient, gateway.GeminiConfig{
		TextModel:  cfg.Gemini.TextModel,
		ImageModel: cfg.Gemini.ImageModel,
		Timeout:    cfg.ExternalCallTimeout,
	}, images, zlog)

	httpClient := &http.Client{}
	xcom := gateway.NewXCom(httpClient, gateway.XComAPIBaseURL, cfg.ExternalCallTimeout, zlog)
	linkedin := gateway.NewLinkedIn(httpClient, gateway.LinkedInAPIBaseURL, cfg.ExternalCallTimeout)

	m := metrics.New()

	creditRepo := repository.NewCreditRepository(db)
	contentRepo := repository.NewContentRepository(db)
	connectionRepo := repository.NewSocialConnectionRepository(db, cipher)
	transactionRepo := repository.NewTransactionRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	compensator := queue.NewClient(client, zlog)
	verifiers := oauthstate.NewStore(rdb, oauthstate.DefaultTTL)
	adapters := payment.NewRegistry(
		payment.NewRazorpay(cfg.RazorpayWebhookSecret),
		payment.NewStripe(cfg.StripeWebhookSecret),
	)

	ledger := service.NewCreditLedger(db, creditRepo, cfg.DefaultCredits, zlog)
	contentService := service.NewContentService(db, ledger, contentRepo, gemini, gemini, compensator, cfg.Costs, m, zlog)
	socialService := service.NewSocialService(ledger, contentRepo, connectionRepo, verifiers, compensator, cfg.Costs.Post, m, zlog,
		service.NewXComProvider(cfg.XCom, gateway.XComAPIBaseURL, xcom),
		service.NewLinkedInProvider(cfg.LinkedIn, gateway.LinkedInAPIBaseURL, linkedin),
	)
	billingService := service.NewBillingService(db, ledger, transactionRepo, adapters, cfg.PendingTxnTTL, m, zlog)
	apiKeyService := service.NewApiKeyService(apiKeyRepo, zlog)

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				zlog.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	responder := handlers.NewResponder(cfg.SupportEmail, zlog)
	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService, zlog)
	requireAuth := authMiddleware.AuthMiddleware()

	content := handlers.NewContentHandler(responder, contentService)
	social := handlers.NewSocialHandler(responder, socialService, *cfg, zlog)
	billing := handlers.NewBillingHandler(responder, billingService, ledger)
	apiKeys := handlers.NewApiKeyHandler(responder, apiKeyService)

	app.Post("/generate", requireAuth, content.Generate)
	app.Post("/social/post/:content_id/:platform", requireAuth, social.PostToSocial)
	app.Post("/billing/webhook/:gateway", billing.Webhook)

	app.Get("/auth/:platform", social.AddSocialAccount)
	app.Get("/auth/:platform/callback", social.CallbackHandler)

	api := app.Group("/api")
	api.Use(requireAuth)

	api.Get("/contents", content.ListContents)
	api.Get("/contents/:id", content.GetContent)

	api.Get("/social/connections", social.ListConnections)
	api.Post("/social/connections/remove", social.RemoveConnection)

	api.Get("/credits", billing.GetCredits)
	api.Get("/billing/plans", billing.ListPlans)
	api.Post("/billing/checkout", billing.Checkout)
	api.Get("/billing/transactions", billing.ListTransactions)

	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(connectionRepo, socialService, zlog)
	pendingExpiryJob := job.NewPendingExpiryJob(billingService, zlog)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.Run)
	c.AddFunc("@every 01h00m00s", pendingExpiryJob.Run)
	c.Start()

	// queue
	worker := queue.NewQueue(contentService, ledger, zlog)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
		Logger:      zlog.Named("asynq").Sugar(),
	})
	mux := asynq.NewServeMux()
	worker.Register(mux)
	if err := server.Start(mux); err != nil {
		zlog.Fatal("Could not start task server", zap.Error(err))
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zlog.Info("Server is running", zap.String("port", cfg.Port))

	gracefulShutdown(app, server, c, db, zlog)
}

func closeDB(db *sql.DB, zlog *zap.Logger) {
	if err := db.Close(); err != nil {
		zlog.Error("Failed to close database", zap.Error(err))
		return
	}
	zlog.Info("Database connection closed")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, c *cron.Cron, db *sql.DB, zlog *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	zlog.Info("Shutting down server...")

	c.Stop()
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		zlog.Error("Failed to shut down server", zap.Error(err))
	}
	server.Shutdown()

	closeDB(db, zlog)
	zlog.Info("Server shutdown complete")
}
