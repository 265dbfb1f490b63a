package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/omara/internal/ai"
	"github.com/erazemk/omara/internal/api"
	"github.com/erazemk/omara/internal/auth"
	"github.com/erazemk/omara/internal/config"
	"github.com/erazemk/omara/internal/db"
	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

const tokenPurgeInterval = time.Hour

type options struct {
	configPath string
	envFile    string
	addr       string
	db         string
	log        string
	logLevel   string
	adminEmail string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "omara",
		Short:         "Wardrobe and outfit planning server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.envFile, "env", ".env", "dotenv file loaded if present")
	flags.StringVarP(&opts.addr, "addr", "a", "", "listen address (default :8080)")
	flags.StringVarP(&opts.db, "db", "d", "", "SQLite database path (default omara.sqlite3)")
	flags.StringVarP(&opts.log, "log", "l", "", "log file path (default: stdout/stderr only)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default info)")
	flags.StringVarP(&opts.adminEmail, "admin-email", "u", "", "admin account created on first run")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the database and the admin account, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.DB); err == nil {
				return fmt.Errorf("database already exists: %s", cfg.DB)
			}
			return initDatabase(cmd, cfg)
		},
	})
	return root
}

// loadConfig layers flags that were set explicitly over the file and
// environment settings.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	for name, pair := range map[string][2]*string{
		"addr":        {&cfg.Addr, &opts.addr},
		"db":          {&cfg.DB, &opts.db},
		"log":         {&cfg.Log, &opts.log},
		"log-level":   {&cfg.LogLevel, &opts.logLevel},
		"admin-email": {&cfg.AdminEmail, &opts.adminEmail},
	} {
		if flags.Changed(name) {
			*pair[0] = *pair[1]
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.LogLevel, cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	log := zap.L()

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DB); errors.Is(err, os.ErrNotExist) {
		if err := initDatabase(cmd, cfg); err != nil {
			log.Error("failed to initialize database", zap.Error(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		return err
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		log.Error("failed to ensure database schema", zap.Error(err))
		return err
	}
	log.Info("database ready", zap.String("path", cfg.DB))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		log.Error("failed to get JWT secret", zap.Error(err))
		return err
	}

	assistant, err := newAssistant(ctx, cfg.AI)
	if err != nil {
		log.Error("failed to set up the assistant", zap.Error(err))
		return err
	}

	handler := api.LoggingMiddleware(api.NewRouter(api.Deps{
		DB:        database,
		JWTSecret: jwtSecret,
		Hub:       live.NewHub(database),
		AI:        assistant,
		Limiter:   ai.NewLimiter(cfg.AI.RequestsPerMinute),
	}))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Hijacked stream connections are not tracked by Shutdown; they end
		// when this context does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		purgeRevokedTokens(gctx, database)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		return err
	}
	log.Info("server stopped, closing database")
	return nil
}

// newAssistant returns nil when no API key is configured; the AI endpoints
// then answer 503.
func newAssistant(ctx context.Context, cfg config.AIConfig) (*ai.Service, error) {
	if !cfg.Enabled() {
		zap.L().Warn("no GEMINI_API_KEY configured, assistant disabled")
		return nil, nil
	}
	gemini, err := ai.NewGemini(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	zap.L().Info("assistant enabled", zap.String("model", cfg.Model))
	return ai.NewService(gemini, cfg.Timeout, cfg.MaxInventoryImages), nil
}

// purgeRevokedTokens drops revocations for tokens that have expired anyway.
func purgeRevokedTokens(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpiredTokens(ctx, database, now)
			if err != nil {
				zap.L().Warn("purging revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Info("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}

// initDatabase creates a new database with the schema and an admin account.
func initDatabase(cmd *cobra.Command, cfg *config.Config) error {
	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	fail := func(err error) error {
		database.Close()
		os.Remove(cfg.DB)
		return err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := auth.RandomPassword()
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}
	if _, err := store.CreateUser(cmd.Context(), database, cfg.AdminEmail, "Admin", hash, model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database created: %s\n", cfg.DB)
	fmt.Fprintln(out, "Schema initialized.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Admin account created:")
	fmt.Fprintf(out, "  Email:    %s\n", cfg.AdminEmail)
	fmt.Fprintf(out, "  Password: %s\n", password)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Save this password, it cannot be recovered.")
	fmt.Fprintln(out, "The admin can change it after logging in.")
	return nil
}
