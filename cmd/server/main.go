package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mess-connect/internal/cache"
	"github.com/iliyamo/mess-connect/internal/config"
	"github.com/iliyamo/mess-connect/internal/database"
	"github.com/iliyamo/mess-connect/internal/handler"
	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/middleware"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/queue"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/router"
	"github.com/iliyamo/mess-connect/internal/seed"
	"github.com/iliyamo/mess-connect/internal/service"
	"github.com/iliyamo/mess-connect/internal/storage"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	// Redis is optional unless it is the store backend.
	var rdb *redis.Client
	if cfg.StoreBackend == "redis" || cfg.SettingsCacheBackend == "redis" || rlCfg.Enabled || cacheCfg.Enabled {
		c, err := config.NewRedisClient(ctx, cfg.Redis)
		switch {
		case err == nil:
			rdb = c
			defer rdb.Close()
		case cfg.StoreBackend == "redis":
			return err
		default:
			log.Warn("redis unavailable, rate limiting and shared caches disabled", "error", err)
		}
	}

	checks := map[string]handler.Check{}
	var store kv.Store
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using the in-memory store, data is lost on restart")
		store = kv.NewMemoryStore()
	case "redis":
		store = kv.NewRedisStore(rdb, cfg.Redis.Prefix)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	case "mysql":
		db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		store = kv.NewSQLStore(db)
		checks["mysql"] = pingDB(db)
	default:
		return errors.New("STORE_BACKEND must be memory, redis or mysql")
	}
	repos := repository.New(store)

	seedData, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}
	if err := seed.Apply(ctx, repos, seedData, cfg.BcryptCost, log); err != nil {
		return err
	}
	// After a full reset only the staff accounts come back.
	staff := seed.Data{Users: seedData.Users}
	staffRestore := middleware.NewStaffRestore(func(ctx context.Context) error {
		return seed.Apply(ctx, repos, staff, cfg.BcryptCost, log)
	}, log)

	var settingsCache cache.Cache[model.Setting] = cache.NewMemory[model.Setting](cfg.SettingsCacheTTL)
	if cfg.SettingsCacheBackend == "redis" && rdb != nil {
		settingsCache = cache.NewRedis[model.Setting](rdb, cfg.Redis.Prefix+"cache:", cfg.SettingsCacheTTL)
	}
	settings := service.NewSettingsService(repos.Settings, settingsCache, log)

	var gateway service.Gateway
	if cfg.Razorpay.Configured() {
		gateway = service.NewRazorpay(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, nil)
	} else {
		log.Warn("payment gateway keys not set, online payments disabled")
	}
	payments := service.NewPaymentService(repos, settings, gateway, log)

	var mailer service.Mailer
	switch {
	case cfg.Mail.QueueEnabled:
		pub := queue.NewPublisher(cfg.Mail.RabbitURL)
		defer pub.Close()
		mailer = service.NewQueueMailer(pub)
	case cfg.Mail.APIKey != "":
		mailer = service.NewResend(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From, nil)
	default:
		mailer = service.NewLogMailer(log)
	}
	notifier := service.NewNotifier(mailer, cfg.Mail.AppURL, log)

	var images storage.ImageStore = storage.Inline{}
	if cfg.S3.Bucket != "" {
		s3, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PresignTTL:      cfg.S3.PresignTTL,
		})
		if err != nil {
			return err
		}
		images = s3
	}

	respCache := middleware.NewResponseCache(cacheCfg, rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, checks)
	router.RegisterAPI(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, repos, notifier, log),
		Menu:        handler.NewMenuHandler(repos.Menu, respCache, log),
		Complaints:  handler.NewFeedbackHandler(repos.Complaints, images, log, "Complaint", "complaints"),
		Suggestions: handler.NewFeedbackHandler(repos.Suggestions, images, log, "Suggestion", "suggestions"),
		Students:    handler.NewStudentHandler(repos, images, notifier, log),
		Payments:    handler.NewPaymentHandler(payments, repos.Payments, log),
		Notes:       handler.NewNoteHandler(repos.Notes, log),
		Settings:    handler.NewSettingsHandler(settings, repos, respCache, staffRestore, log),
		Broadcast:   handler.NewBroadcastHandler(repos.Users, notifier, log),
	}, router.Middleware{
		RestoreStaff: staffRestore.Middleware(),
		Authenticate: middleware.Authenticate(cfg.JWTSecret, repos.Users),
		RateLimit:    middleware.NewTokenBucket(rlCfg, rdb, log),
		MenuCache:    respCache.Middleware(),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func pingDB(db *sql.DB) handler.Check {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}
