package app

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/km-arc/go-injector/framework/config"
	"github.com/km-arc/go-injector/framework/container"
	"github.com/km-arc/go-injector/framework/logger"
	"github.com/km-arc/go-injector/framework/providers"
	"github.com/km-arc/go-injector/framework/routing"
	"github.com/km-arc/go-injector/framework/types"
)

// Application is the top-level application container.
// It embeds the Container so user code can call app.Register(),
// app.Resolve() and friends directly.
type Application struct {
	*container.Container

	cfg *config.Config
	log *zap.Logger
}

// New loads configuration, builds the logger and registers the framework:
//
//   - *config.Config, unnamed
//   - *zap.Logger, unnamed
//   - the "config_dir" string (CONFIG_DIR)
//   - providers.FrameworkModule
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("app", cfg.App.Name))

	c := container.New(
		container.WithLogger(log.Named("container")),
		container.WithConfig(cfg.Container),
	)

	a := &Application{Container: c, cfg: cfg, log: log}
	if err := a.boot(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Application) boot() error {
	if err := a.RegisterInstance(a.cfg); err != nil {
		return errors.WithMessage(err, "app: register config")
	}
	if err := a.RegisterInstance(a.log); err != nil {
		return errors.WithMessage(err, "app: register logger")
	}
	if err := a.RegisterInstance(a.cfg.App.ConfigDir, container.Named("config_dir")); err != nil {
		return errors.WithMessage(err, "app: register config_dir")
	}
	return a.Use(providers.FrameworkModule)
}

// Use registers a module with the application container and logs it.
// Provider-level registration stays available through the embedded
// Container (RegisterInstance, Register, ...).
//
//	app.Use(greeting.Module)
func (a *Application) Use(module types.Type) error {
	if err := a.RegisterModule(module); err != nil {
		return errors.WithMessagef(err, "app: register %s", module)
	}
	a.log.Debug("module registered", zap.Stringer("module", module))
	return nil
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.log }

// Router resolves the application router.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, "router")
}

// Run resolves the HTTP server and serves until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	srv, err := container.Resolve[*http.Server](a.Container, "server")
	if err != nil {
		return errors.WithMessage(err, "app: resolve server")
	}

	if a.IsDebug() {
		for _, route := range a.Router().Routes() {
			a.log.Info("route", zap.String("route", route))
		}
	}
	a.log.Info("listening",
		zap.String("addr", srv.Addr),
		zap.String("env", a.Environment()),
		zap.String("container", a.ID()),
	)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "app: serve")
	case <-ctx.Done():
		a.log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }

// IsDebug reports APP_DEBUG. Debug applications list their routes at start
// and expose container diagnostics.
func (a *Application) IsDebug() bool { return a.cfg.App.Debug }
