package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/metrics"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registrar defines the registration operation needed by MCP.
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (*registration.Report, error)
}

// LifecycleService defines daily lifecycle operations needed by MCP.
type LifecycleService interface {
	Open(ctx context.Context, groupID int64) (*daily.Notice, error)
	Close(ctx context.Context, groupID int64) (*daily.Notice, error)
	History(ctx context.Context, groupID int64, limit int) ([]daily.Daily, error)
}

// TeamService defines team operations needed by MCP.
type TeamService interface {
	Bind(ctx context.Context, req team.BindRequest) (*team.BindResult, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Registrar Registrar
	Lifecycle LifecycleService
	Teams     TeamService
	Activity  ActivityService
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Config contains server configuration.
type Config struct {
	Services Services
	// Resolver authenticates HTTP callers. Nil disables auth.
	Resolver      CallerResolver
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

const serverInstructions = `dailylog tracks daily stand-up meetings held in chat groups and logs them to Redmine.
Groups are identified by their numeric chat id. A group must be bound to a project (bind_team)
before its dailies can be registered. start_daily and end_daily open and close a group's daily;
register_daily creates the tracking record for the latest closed daily and logs time for every
mentioned participant. Registration is only allowed within the configured window after the
daily ends. list_dailies and recent_activity are read-only.`

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "dailylog",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	// Stdio is local only and never authenticated.
	if cfg.TransportMode != "stdio" && cfg.Resolver != nil {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(localCaller))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services, cfg.Logger))

	return server
}
