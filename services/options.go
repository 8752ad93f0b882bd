package services

import (
	"log/slog"
	"time"

	"apiworkbench/utils"
)

type serviceConfig struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a service at construction.
type Option func(*serviceConfig)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newServiceConfig(component string, opts []Option) serviceConfig {
	cfg := serviceConfig{
		now:    func() time.Time { return time.Now().UTC() },
		logger: utils.Logger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.With("component", component)
	return cfg
}

// refValue unwraps an optional id for logging.
func refValue(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
