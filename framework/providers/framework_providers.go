package providers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-injector/framework/config"
	"github.com/km-arc/go-injector/framework/routing"
	"github.com/km-arc/go-injector/framework/types"
)

// ── Framework types ───────────────────────────────────────────────────────────

// Types of the values the framework registers, declared in types.Default.
var (
	Config = types.MustDeclare[*config.Config](types.Default, "Config")
	Logger = types.MustDeclare[*zap.Logger](types.Default, "Logger")
	Router = types.MustDeclare[*routing.Router](types.Default, "Router")
	Server = types.MustDeclare[*http.Server](types.Default, "Server")
)

// ── RoutingModule ─────────────────────────────────────────────────────────────

// RoutingModule provides the HTTP stack.
//
// Providers:
//   - "router" → *routing.Router, needs "logger"
//   - "server" → *http.Server, needs "config" and "router"
var RoutingModule = types.MustDeclare[*routingModule](types.Default, "RoutingModule",
	types.Module(),
	types.MethodAs("Router", "router", "logger"),
	types.MethodAs("Server", "server", "config", "router"),
)

type routingModule struct{}

// Router builds the application router.
func (*routingModule) Router(log *zap.Logger) *routing.Router {
	return routing.New(log.Named("http"))
}

// Server builds the HTTP server listening on APP_PORT.
func (*routingModule) Server(cfg *config.Config, router *routing.Router) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ── FrameworkModule ───────────────────────────────────────────────────────────

// FrameworkModule is everything the application registers at boot.
var FrameworkModule = types.MustDeclare[*frameworkModule](types.Default, "FrameworkModule",
	types.Module(),
	types.Includes(RoutingModule),
)

type frameworkModule struct{}
