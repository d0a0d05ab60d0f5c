package internal

import "github.com/starford/assetcook/internal/models"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	target *models.Target
	force  bool
	watch  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithTarget sets the source/output roots and the platform/configuration pair
// that selects the ledger instance.
func WithTarget(t models.Target) Option {
	return func(a *application) {
		a.target = &t
	}
}

// WithForce ignores the persisted ledger so every file is processed.
func WithForce(force bool) Option {
	return func(a *application) {
		a.force = force
	}
}

// WithWatch keeps the process running after the first pass and re-runs the
// pipeline whenever the source tree changes.
func WithWatch(watch bool) Option {
	return func(a *application) {
		a.watch = watch
	}
}
