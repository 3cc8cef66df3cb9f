package container

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-injector/framework/config"
	"github.com/km-arc/go-injector/framework/types"
)

// ── Container options ─────────────────────────────────────────────────────────

// Option configures a Container.
type Option func(*Container)

// WithCatalog sets the catalog used to map Go types to Types. Defaults to
// types.Default.
func WithCatalog(cat *types.Catalog) Option {
	return func(c *Container) {
		if cat != nil {
			c.catalog = cat
		}
	}
}

// WithLogger sets the logger registrations and resolutions are reported to at
// debug level. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// WithCacheSize sets how many linearizations the container remembers.
// Non-positive sizes keep types.DefaultCacheSize.
func WithCacheSize(size int) Option {
	return func(c *Container) {
		if size > 0 {
			c.cacheSize = size
		}
	}
}

// WithConfig applies the container section of the application config.
//
//	cfg := config.Load()
//	c := container.New(container.WithConfig(cfg.Container))
func WithConfig(cfg config.ContainerConfig) Option {
	return WithCacheSize(cfg.CacheSize)
}

// ── Registration options ──────────────────────────────────────────────────────

// RegisterOption qualifies one registration.
type RegisterOption func(*registration)

type registration struct {
	name   string
	as     types.Type
	params []string
	deps   []Dependency
	hasDep bool
}

func newRegistration(opts []RegisterOption) *registration {
	r := &registration{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Named registers the provider under name. Requests carrying a different
// name skip it; unnamed requests still see it.
func Named(name string) RegisterOption {
	return func(r *registration) { r.name = name }
}

// As overrides the Type the catalog would infer for an instance or callable.
//
//	c.RegisterInstance(&SQLRepo{}, container.As(Repository))
func As(t types.Type) RegisterOption {
	return func(r *registration) { r.as = t }
}

// Params names a callable's parameters, in order. Their types come from the
// catalog.
//
//	c.RegisterCallable(func(dir string) string { return dir + "/app.log" },
//	    container.Named("log_path"), container.Params("config_dir"))
func Params(names ...string) RegisterOption {
	return func(r *registration) { r.params = names }
}

// Deps gives a callable's dependencies explicitly, bypassing the catalog.
func Deps(deps ...Dependency) RegisterOption {
	return func(r *registration) { r.deps, r.hasDep = deps, true }
}
