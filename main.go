package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courtside/cache"
	"courtside/config"
	"courtside/economy"
	"courtside/handlers"
	"courtside/logging"
	"courtside/middleware"
	"courtside/models"
	"courtside/realtime"
	"courtside/services"
	"courtside/telemetry"
	"courtside/utils"
	"courtside/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Production)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "courtside", cfg.OTELEndpoint)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Cache: redis when configured, otherwise in-process.
	var store cache.Cache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword))
		if err := rc.Ping(ctx); err != nil {
			logger.Fatal("failed to reach redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		store = rc
	}

	// Realtime: with NATS every instance publishes to the bus and the hub
	// receives from it; without NATS the hub is the bus.
	hub := realtime.NewHub(logger)
	var publisher realtime.Publisher = hub
	if cfg.NatsURL != "" {
		conn, err := realtime.Connect(cfg.NatsURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer conn.Close()
		if err := hub.Bridge(ctx, conn); err != nil {
			logger.Fatal("failed to bridge realtime changes", zap.Error(err))
		}
		publisher = realtime.NewNATSPublisher(conn, logger)
	}

	var media services.MediaStore
	if cfg.MediaEnabled() {
		ms, err := utils.NewMediaStorage(ctx, utils.MediaConfig{
			AccountID: cfg.MediaAccountID,
			KeyID:     cfg.MediaKeyID,
			Secret:    cfg.MediaSecret,
			Bucket:    cfg.MediaBucket,
			CDNURL:    cfg.MediaCDNURL,
		})
		if err != nil {
			logger.Fatal("failed to initialize media storage", zap.Error(err))
		}
		media = ms
	}

	var notifier services.Notifier = services.LogNotifier{Logger: logger}
	if cfg.SendgridKey != "" {
		notifier = services.NewSendgridNotifier(cfg.SendgridKey, cfg.EmailSender, cfg.EmailSenderName, logger)
	}

	achievements := services.NewAchievementService(db, logger)
	if err := achievements.Seed(ctx); err != nil {
		logger.Fatal("failed to seed achievements", zap.Error(err))
	}
	eco := services.NewEconomy(db, services.EconomyConfig{
		HP: economy.HPConfig{
			Max:          cfg.HPMax,
			RegenPerHour: cfg.HPRegenPerHour,
			DecayPerDay:  cfg.HPDecayPerDay,
			DecayAfter:   cfg.HPDecayAfter,
			Floor:        cfg.HPFloor,
		},
		LevelUpBonus:  cfg.LevelUpBonus,
		StarterTokens: cfg.StarterTokens,
	}, achievements, logger)

	progression := services.NewProgressionService(db, eco, achievements)
	hp := services.NewHPService(db, eco, logger)
	profiles := services.NewProfileService(db, eco, store, media, publisher, logger)
	matches := services.NewMatchService(db, eco, services.NewOpponentDirectory(db, store, logger), publisher, logger)
	sessions := services.NewSessionService(db, eco, publisher, logger, cfg.RefundCutoff)
	clubs := services.NewClubService(db, media, publisher, logger)
	messages := services.NewMessageService(db, publisher, logger)
	academy := services.NewAcademyService(db, eco, cfg.QuizPassPercent, logger)
	if err := academy.SeedQuestions(ctx); err != nil {
		logger.Fatal("failed to seed quiz questions", zap.Error(err))
	}
	appointments := services.NewAppointmentService(db, notifier, publisher, logger)
	feedback := services.NewFeedbackService(db, logger)
	checkout := services.NewCheckoutService(db, eco,
		&services.HTTPPaymentProvider{BaseURL: cfg.PaymentsURL, APIKey: cfg.PaymentsKey, Client: utils.HTTPClient},
		services.CheckoutConfig{SuccessURL: cfg.CheckoutSuccess, CancelURL: cfg.CheckoutCancel, WebhookSecret: cfg.PaymentsWebhook},
		notifier, publisher, logger)
	places := services.NewPlacesService(services.PlacesConfig{
		URL:        cfg.PlacesURL,
		APIKey:     cfg.PlacesKey,
		RatePerSec: cfg.PlacesRatePerSec,
		CacheTTL:   cfg.PlacesCacheTTL,
	}, utils.HTTPClient, store, logger)

	scheduler := services.NewSchedulerService(hp, sessions, services.SchedulerConfig{
		HPRegenInterval:      cfg.HPRegenInterval,
		SessionSweepInterval: cfg.SessionSweep,
	}, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	if cfg.PaymentsKey != "" {
		workers.NewCheckoutReconciler(checkout, cfg.CheckoutPoll, logger).Start(ctx)
	}
	workers.NewCacheInvalidator(hub, store, logger).Start(ctx)

	app := fiber.New(fiber.Config{
		BodyLimit:             utils.MaxImageBytes + 1<<20,
		DisableStartupMessage: cfg.Production,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	gateway := middleware.GatewayAuthMiddleware(cfg.ServiceToken, cfg.JWTSecret, logger)

	handlers.SetupHealthRoutes(app, db)
	handlers.SetupWebhookRoutes(app, checkout)
	handlers.SetupStreamRoutes(app, hub, middleware.SSEAuthMiddleware(cfg.JWTSecret, logger))

	secured := app.Group("/s", gateway, middleware.UserContextMiddleware(logger))
	handlers.SetupProfileRoutes(secured, profiles)
	handlers.SetupProgressionRoutes(secured, progression, hp)
	handlers.SetupMatchRoutes(secured, matches)
	handlers.SetupAnalysisRoutes(secured, matches.Opponents)
	handlers.SetupSessionRoutes(secured, sessions, feedback)
	handlers.SetupAppointmentRoutes(secured, appointments)
	handlers.SetupClubRoutes(secured, clubs)
	handlers.SetupMessageRoutes(secured, messages)
	handlers.SetupAcademyRoutes(secured, academy)
	handlers.SetupCheckoutRoutes(secured, checkout)
	handlers.SetupPlacesRoutes(secured, places)

	internal := app.Group("/internal", gateway, middleware.ServiceOnly())
	handlers.SetupJobRoutes(internal, scheduler)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()
	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Bool("nats", cfg.NatsURL != ""),
		zap.Bool("media", media != nil))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
