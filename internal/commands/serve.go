package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tehokas/taskdeck/db"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/config"
	"github.com/tehokas/taskdeck/internal/handlers"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/router"
	"github.com/tehokas/taskdeck/internal/services"
	"gorm.io/gorm"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := bootstrap("taskdeck-api")
		if err != nil {
			return err
		}

		if serveMigrate {
			if err := db.MigrateDatabase(conn); err != nil {
				return err
			}
		}

		if err := logging.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
			logging.Logger.WithError(err).Warn("sentry disabled")
		}
		defer logging.FlushSentry()

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		return serve(cmd.Context(), cfg, conn)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply schema migrations before serving")
}

func serve(ctx context.Context, cfg *config.Config, conn *gorm.DB) error {
	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	revocations := revocationStore(ctx, cfg)

	svc := services.New(conn)

	ping := func(ctx context.Context) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	h := handlers.New(svc, tokens, revocations, handlers.CookieSettings{
		Domain: cfg.CookieDomain,
		Secure: cfg.IsProduction(),
	}, ping)

	engine := router.NewRouter(router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Tokens:         tokens,
		Revocations:    revocations,
		Services:       svc,
		Handler:        h,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		color.Green("TaskDeck listening on :%s (%s)\n", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logging.Logger.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	color.Yellow("TaskDeck stopped\n")
	return nil
}

// revocationStore prefers Redis so logouts hold across instances, and falls
// back to process memory when Redis is off or unreachable.
func revocationStore(ctx context.Context, cfg *config.Config) auth.RevocationStore {
	if !cfg.Redis.Enabled {
		return auth.NewMemoryStore()
	}

	store := auth.NewRedisStore(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := store.Ping(pingCtx); err != nil {
		logging.Logger.WithError(err).Warn("redis unreachable at startup, revocations stay local until it recovers")
	}

	return store
}
