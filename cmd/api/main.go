package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cnstrctnetwork/cnstrct/internal/auth"
	"github.com/cnstrctnetwork/cnstrct/internal/billing"
	"github.com/cnstrctnetwork/cnstrct/internal/billing/provider"
	billingStore "github.com/cnstrctnetwork/cnstrct/internal/billing/store"
	"github.com/cnstrctnetwork/cnstrct/internal/config"
	"github.com/cnstrctnetwork/cnstrct/internal/dashboard"
	"github.com/cnstrctnetwork/cnstrct/internal/database"
	cnstrctHttp "github.com/cnstrctnetwork/cnstrct/internal/http"
	billingHandler "github.com/cnstrctnetwork/cnstrct/internal/http/billing"
	dashboardHandler "github.com/cnstrctnetwork/cnstrct/internal/http/dashboard"
	migrateHandler "github.com/cnstrctnetwork/cnstrct/internal/http/migrate"
	emailHandler "github.com/cnstrctnetwork/cnstrct/internal/http/notification"
	projectHandler "github.com/cnstrctnetwork/cnstrct/internal/http/project"
	"github.com/cnstrctnetwork/cnstrct/internal/migrate"
	"github.com/cnstrctnetwork/cnstrct/internal/notification"
	"github.com/cnstrctnetwork/cnstrct/internal/notification/queue"
	"github.com/cnstrctnetwork/cnstrct/internal/project"
	projectStore "github.com/cnstrctnetwork/cnstrct/internal/project/store"
	"github.com/cnstrctnetwork/cnstrct/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blobs, uploads, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open document storage", "error", err)
		os.Exit(1)
	}

	if closer, ok := blobs.(io.Closer); ok {
		defer closer.Close()
	}

	templates, err := notification.LoadTemplates(cfg.Email.TemplatesFile)
	if err != nil {
		slog.Error("failed to load email templates", "error", err)
		os.Exit(1)
	}

	migrationsFS := migrate.Embedded()
	if cfg.Migrations.Dir != "" {
		migrationsFS = os.DirFS(cfg.Migrations.Dir)
	}

	migrations, err := migrate.Load(migrationsFS)
	if err != nil {
		slog.Error("failed to load migrations", "error", err)
		os.Exit(1)
	}

	projects := projectStore.New(db)

	var (
		projectService      = project.NewService(projects, blobs)
		dashboardService    = dashboard.NewService(projects)
		notificationService = notification.NewService(templates, notification.NewResendSender(cfg.Email.ResendAPIKey), cfg.Email.From)
		migrationRunner     = migrate.NewRunner(db, migrations)
	)

	var notifier billing.Notifier = notificationService

	if cfg.Queue.URL != "" {
		publisher, err := queue.NewPublisher(cfg.Queue.URL, queue.DefaultQueue)
		if err != nil {
			slog.Error("failed to connect to queue", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		notifier = publisher
	}

	reconciler := billing.NewReconciler(
		billingStore.New(db),
		provider.New(cfg.Stripe.SecretKey),
		notifier,
		cfg.Stripe.WebhookSecret,
	)

	var (
		verifier   = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.CookieName)
		projectH   = projectHandler.NewHandler(projectService)
		dashboardH = dashboardHandler.NewHandler(dashboardService)
		billingH   = billingHandler.NewHandler(reconciler)
		emailH     = emailHandler.NewHandler(notificationService)
		migrateH   = migrateHandler.NewHandler(migrationRunner, migrationsFS)
	)

	router := cnstrctHttp.New(verifier, projectH, dashboardH, billingH, emailH, migrateH, cnstrctHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Uploads:        uploads,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("starting server", "port", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openStorage returns the configured blob store and, for the local backend,
// the directory the router serves under /uploads.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Store, http.FileSystem, error) {
	switch cfg.Storage.Backend {
	case "local":
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating %s: %w", cfg.Storage.Dir, err)
		}

		return storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicURL), http.FS(os.DirFS(cfg.Storage.Dir)), nil
	case "gcs":
		store, err := storage.NewGCS(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, nil, err
		}

		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
