package handlers

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing-webhooks/core"
	"github.com/goliatone/go-billing-webhooks/events"
)

const EventTypeSubscriptionDeleted = "customer.subscription.deleted"

// SubscriptionDeleted revokes pro access for the account whose stored billing
// customer id matches the event's customer reference. An unknown customer is
// a no-op, not an error: the account may have been deleted locally, or the
// event belongs to another system sharing the endpoint.
type SubscriptionDeleted struct {
	accounts core.AccountStore
	logger   core.Logger
}

func NewSubscriptionDeleted(accounts core.AccountStore, logger core.Logger) *SubscriptionDeleted {
	return &SubscriptionDeleted{
		accounts: accounts,
		logger:   glog.Ensure(logger),
	}
}

func (*SubscriptionDeleted) EventType() string { return EventTypeSubscriptionDeleted }

func (h *SubscriptionDeleted) Handle(ctx context.Context, event core.Event) (core.HandlerOutcome, error) {
	if h == nil || h.accounts == nil {
		return core.HandlerOutcome{}, fmt.Errorf("handlers: subscription handler requires an account store")
	}
	customerID := events.CustomerID(event)
	if customerID == "" {
		return noOp("Unknown customer", event), nil
	}

	account, found, err := h.accounts.FindByCustomerID(ctx, customerID)
	if err != nil {
		return core.HandlerOutcome{}, fmt.Errorf("handlers: find account for customer %s: %w", customerID, err)
	}
	if !found {
		h.logger.Info("subscription deleted for unknown customer",
			"event_id", event.ID,
			"customer_id", customerID,
		)
		return noOp("Unknown customer", event), nil
	}

	// Revoking is naturally idempotent; redelivery leaves the flag false.
	updated, err := h.accounts.RevokeProAccess(ctx, account.ID)
	if err != nil {
		return core.HandlerOutcome{}, fmt.Errorf("handlers: revoke pro access for account %s: %w", account.ID, err)
	}
	h.logger.Info("pro access revoked",
		"account_id", updated.ID,
		"customer_id", customerID,
		"event_id", event.ID,
	)
	return core.HandlerOutcome{
		Kind: core.OutcomeOK,
		Metadata: map[string]any{
			"account_id":  updated.ID,
			"customer_id": customerID,
		},
	}, nil
}

func noOp(message string, event core.Event) core.HandlerOutcome {
	return core.HandlerOutcome{
		Kind:    core.OutcomeNoOp,
		Message: strings.TrimSpace(message),
		Metadata: map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
		},
	}
}
