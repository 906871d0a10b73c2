package engine

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing-webhooks/core"
)

// LogAlerter reports delivery failures through the structured logger. It is
// the default Alerter; swap in a pager or chat integration for production
// escalation.
type LogAlerter struct {
	logger core.Logger
}

func NewLogAlerter(logger core.Logger) *LogAlerter {
	return &LogAlerter{logger: glog.Ensure(logger)}
}

func (a *LogAlerter) Notify(ctx context.Context, description string) {
	if a == nil || a.logger == nil {
		return
	}
	logger := a.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	logger.Error("webhook delivery failed", "description", description)
}

// NopAlerter discards notifications.
type NopAlerter struct{}

func (NopAlerter) Notify(context.Context, string) {}
