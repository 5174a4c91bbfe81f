package bridge

import (
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds configuration for the Bridge
type Config struct {
	// StdoutLimit caps the captured response size; 0 captures everything.
	StdoutLimit int64
	// StderrLimit caps the captured error text; 0 captures everything.
	StderrLimit   int64
	MeterProvider metric.MeterProvider
	// Environ supplies the environment the overlay is applied to.
	Environ func() []string
	// Now is the clock execution durations are measured with.
	Now func() time.Time
}

// Option is a function that configures the Bridge
type Option func(*Config)

// WithStdoutLimit sets the stdout capture limit
func WithStdoutLimit(limit int64) Option {
	return func(c *Config) {
		c.StdoutLimit = limit
	}
}

// WithStderrLimit sets the stderr capture limit
func WithStderrLimit(limit int64) Option {
	return func(c *Config) {
		c.StderrLimit = limit
	}
}

// WithMeterProvider sets the provider the execution metrics are recorded on
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *Config) {
		c.MeterProvider = provider
	}
}

// WithEnviron replaces os.Environ as the inherited environment
func WithEnviron(environ func() []string) Option {
	return func(c *Config) {
		c.Environ = environ
	}
}

// WithClock replaces time.Now for duration measurement
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// DefaultConfig returns the default configuration: unlimited capture and
// the global meter provider.
func DefaultConfig() *Config {
	return &Config{
		StdoutLimit:   0,
		StderrLimit:   0,
		MeterProvider: otel.GetMeterProvider(),
		Environ:       os.Environ,
		Now:           time.Now,
	}
}
