package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/jobs"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/service/search"
	"github.com/Skotchmaster/storefront/internal/session"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
	"github.com/Skotchmaster/storefront/internal/upload"
	"github.com/Skotchmaster/storefront/internal/views"
)

const bodyLimit = "10M"

func main() {
	config.LoadEnv(".env")
	cfg := config.Load()

	l := logging.New(cfg.LogLevel, cfg.LogFile)
	slog.SetDefault(l)

	if err := run(cfg, l); err != nil {
		l.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, l *slog.Logger) error {
	ctx := logging.IntoContext(context.Background(), l)

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				l.Error("db_close_error", "error", err)
			}
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var pub service.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer func() {
			if err := prod.Close(); err != nil {
				l.Error("kafka_close_error", "error", err)
			}
		}()
		pub = prod
	} else {
		l.Info("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	r := repo.New(gdb)
	authSvc := &service.AuthService{Repo: r, Publisher: pub}
	catalog := &service.CatalogService{Repo: r, Publisher: pub}
	adminSvc := &service.AdminService{Repo: r, Publisher: pub}
	carts := service.NewCartService(pub)

	if cfg.ESURL != "" {
		client, err := es.NewClient(es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, l)
		if err != nil {
			l.Warn("es_disabled", "reason", "cluster unreachable, search uses the database", "error", err)
		} else {
			catalog.Index = &search.Index{ES: client, Name: cfg.ESIndex}
		}
	}

	created, err := authSvc.EnsureDefaultAdmin(ctx, service.AdminSeed{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Address:  cfg.AdminAddress,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		l.Info("default_admin_created", "username", cfg.AdminUsername, "password", cfg.AdminPassword)
	}

	sessions, err := newSessions(cfg)
	if err != nil {
		return err
	}
	if cfg.DevSessionSecret() {
		l.Warn("session_secret_default", "reason", "SESSION_SECRET is not set; do not use in production")
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	renderer, err := views.New()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	sched := jobs.New(l)
	if err := sched.AddCartPruning(jobs.PruneCartsSpec, carts, cfg.CartIdleTTL); err != nil {
		return err
	}
	sched.Start()
	l.Info("jobs_started", "entries", sched.Len())

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(l))
	e.Use(httpserver.BodyLimit(bodyLimit))

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure

	httpserver.Register(e, &httpserver.Deps{
		DB:        gdb,
		Sessions:  sessions,
		CSRF:      csrfCfg,
		UploadDir: uploadDirFor(cfg),
		PublicDir: cfg.PublicDir,

		AuthHandler:    &handlers.AuthHTTP{Svc: authSvc, Sessions: sessions, Carts: carts},
		PageHandler:    &handlers.StorefrontHTTP{Catalog: catalog, Admin: adminSvc, Carts: carts, Sessions: sessions},
		ProductHandler: &handlers.ProductHTTP{Svc: catalog, Uploads: upload.New(storage)},
		UserHandler:    &handlers.UserHTTP{Svc: adminSvc},
		CartHandler:    &handlers.CartHTTP{Svc: carts, Sessions: sessions},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("server_start", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		l.Info("shutting_down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}
	sched.Stop(shutdownCtx)

	l.Info("shutdown_complete")
	return nil
}

func newSessions(cfg config.Config) (*session.Manager, error) {
	switch cfg.SessionStore {
	case "", "cookie":
		return session.NewCookieStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.CookieSecure), nil
	case "filesystem":
		if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
			return nil, fmt.Errorf("session dir: %w", err)
		}
		return session.NewFilesystemStore(cfg.SessionDir, cfg.SessionSecret, cfg.SessionMaxAge, cfg.CookieSecure), nil
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", cfg.SessionStore)
	}
}

func newStorage(ctx context.Context, cfg config.Config) (upload.Storage, error) {
	switch cfg.UploadBackend {
	case "", "local":
		s, err := upload.NewLocalStorage(cfg.UploadDir, "/uploads")
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
		s, err := upload.NewS3StorageFromEnv(ctx, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported UPLOAD_BACKEND %q", cfg.UploadBackend)
	}
}

// uploadDirFor returns the directory served at /uploads; S3 images are served by S3.
func uploadDirFor(cfg config.Config) string {
	if cfg.UploadBackend == "s3" {
		return ""
	}
	return cfg.UploadDir
}
