// Package billingwebhooks verifies, classifies, and dispatches signed billing
// provider webhooks. The root package re-exports the common entry points so
// embedding applications only need one import for the typical wiring.
package billingwebhooks

import (
	"github.com/goliatone/go-billing-webhooks/core"
	"github.com/goliatone/go-billing-webhooks/engine"
)

type Config = core.Config

type Option = engine.Option

// Engine is the delivery pipeline assembled by New.
type Engine = engine.Engine

// DefaultConfig returns the baseline configuration; callers must still supply
// a signing secret.
func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New assembles the pipeline. See the engine package for available options.
func New(cfg Config, opts ...Option) (*Engine, error) {
	return engine.New(cfg, opts...)
}
