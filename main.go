package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reward-ledger/handlers"
	"reward-ledger/logger"
	"reward-ledger/middleware"
	"reward-ledger/models"
	"reward-ledger/services"
	"reward-ledger/utils"
	"reward-ledger/workers"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		boot, _ := logger.New("dev")
		boot.Fatal("config", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}
	if err := models.SeedCatalogs(db); err != nil {
		log.Fatal("failed to seed catalogs", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbSink := services.NewDBSink(db)
	notifier := services.MultiNotifier{dbSink}
	if cfg.RedisAddr != "" {
		redisNotifier, err := services.NewRedisNotifier(cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		defer redisNotifier.Close()
		notifier = append(notifier, redisNotifier)
		log.Info("redis notifications enabled", "channel", cfg.RedisChannel)
	}

	opts := services.EngineOptions{
		Calendar: services.Calendar{Location: cfg.RewardTimezone},
		Notifier: notifier,
		Activity: dbSink,
	}
	r2, err := utils.NewR2Store(ctx, cfg.R2)
	if err != nil {
		log.Fatal("failed to initialize R2 client", "error", err)
	}
	if r2 != nil {
		opts.Icons = r2
	} else {
		log.Warn("R2 not configured, shop icon uploads disabled")
	}
	engine := services.NewEngine(db, log, opts)

	schedCfg := services.SchedulerConfig{
		Location:  cfg.RewardTimezone,
		PruneCron: cfg.PruneCron,
	}
	if cfg.SyncServiceURL != "" {
		syncWorker := workers.NewUserSyncWorker(db, log, cfg.SyncServiceURL, cfg.SyncPath, cfg.ServiceToken)
		schedCfg.Sync = syncWorker.Sync
		schedCfg.SyncEvery = cfg.SyncInterval
	} else {
		log.Warn("SYNC_SERVICE_URL not set, user sync disabled")
	}
	sched, err := services.StartScheduler(log, schedCfg, engine.Maintenance)
	if err != nil {
		log.Fatal("failed to start scheduler", "error", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})
	// Only the gateway may call this service.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Username",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupNotificationRoutes(app, engine.Inbox, log)
	handlers.SetupRewardRoutes(app, engine, log)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			stop()
		}
	}()
	log.Info("reward ledger running", "port", cfg.Port, "timezone", cfg.RewardTimezone.String(), "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Info("shutting down")

	if err := sched.Shutdown(); err != nil {
		log.Warn("scheduler shutdown", "error", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("server shutdown", "error", err)
	}
}
