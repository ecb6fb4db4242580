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
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ganot/dailylog/internal/chat"
	"github.com/ganot/dailylog/internal/cipher"
	"github.com/ganot/dailylog/internal/clock"
	"github.com/ganot/dailylog/internal/config"
	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/grouplock"
	"github.com/ganot/dailylog/internal/mcp"
	"github.com/ganot/dailylog/internal/metrics"
	"github.com/ganot/dailylog/internal/redmine"
	"github.com/ganot/dailylog/internal/sqlite"
	"github.com/ganot/dailylog/internal/tracking"
	"github.com/ganot/dailylog/internal/transport"
	"github.com/lmittmann/tint"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dailylog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var genIdentity bool
	flagSet := pflag.NewFlagSet("dailylog", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config (default: $DAILYLOG_CONFIG_PATH)")
	flagSet.BoolVar(&genIdentity, "generate-identity", false, "print a new age identity for crypto.identity and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if genIdentity {
		identity, err := cipher.GenerateIdentity()
		if err != nil {
			return err
		}
		fmt.Println(identity)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Stdout carries JSON-RPC in stdio mode.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	logger := newLogger(logWriter, cfg.Log)

	sealer, err := cipher.New(cfg.Crypto.Identity)
	if err != nil {
		return fmt.Errorf("crypto.identity: %w", err)
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return err
	}

	m := metrics.New()
	client := m.Instrument(redmine.New(cfg.Redmine.URL, cfg.Redmine.Timeout))
	gateway := tracking.NewGateway(client, tracking.Options{
		BaseURL:      cfg.Redmine.URL,
		ActivityHint: cfg.Daily.ActivityHint,
	}, logger.With("component", "tracking"))

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	accountSvc := account.NewService(sqlite.NewAccountRepository(db), sealer, logger.With("component", "account"))
	teamSvc := team.NewService(sqlite.NewTeamRepository(db), accountSvc, gateway, activitySvc, logger.With("component", "team"))

	locks := grouplock.New()
	store := sqlite.NewDailyStore(db)
	lifecycle := daily.NewLifecycle(store, teamSvc, locks, clock.Real(), activitySvc, logger.With("component", "lifecycle"))
	orchestrator := registration.NewOrchestrator(registration.Deps{
		Teams:    teamSvc,
		Accounts: accountSvc,
		Store:    store,
		Gateway:  gateway,
		Locks:    locks,
		Clock:    clock.Real(),
		Activity: activitySvc,
	}, registration.Options{
		Window:      cfg.Daily.RegistrationWindow,
		Location:    loc,
		Comment:     cfg.Daily.Comment,
		Concurrency: cfg.Daily.Concurrency,
	}, logger.With("component", "registration"))

	var resolver mcp.CallerResolver
	var tokens transport.StaticTokens
	if cfg.Webhook.Secret != "" {
		tokens = transport.StaticTokens{cfg.Webhook.Secret: "bridge"}
		resolver = tokens
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Registrar: orchestrator,
			Lifecycle: lifecycle,
			Teams:     teamSvc,
			Activity:  activitySvc,
			Metrics:   m,
		},
		Resolver:      resolver,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger.With("component", "mcp"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Transport.Mode == "stdio" {
		logger.Info("starting stdio transport", "auth", "disabled")
		// Run returns when stdin closes or ctx is canceled.
		return mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
	}

	dispatcher := chat.NewDispatcher(chat.Deps{
		Accounts:  accountSvc,
		Teams:     teamSvc,
		Lifecycle: lifecycle,
		Registrar: orchestrator,
		Activity:  activitySvc,
		Metrics:   m,
	}, logger.With("component", "chat"))

	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	opts := transport.Options{
		Metrics:        m.Handler(),
		MCP:            mcpHandler,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.With("component", "http"),
	}
	if tokens != nil {
		opts.Auth = transport.AuthMiddleware(tokens)
	} else {
		logger.Warn("webhook.secret is empty; /webhook and /mcp are unauthenticated")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return serveHTTP(ctx, logger, &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(dispatcher, opts),
		ReadHeaderTimeout: 10 * time.Second,
	})
}

func serveHTTP(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := parseLogLevel(cfg.Level)
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    w != os.Stdout,
	}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ensureDBDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
