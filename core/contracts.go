package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Handler performs the idempotent side effect for one event type. Handlers
// must be safe to invoke concurrently for different events and must tolerate
// redelivery of the same event without double-applying.
type Handler interface {
	EventType() string
	Handle(ctx context.Context, event Event) (HandlerOutcome, error)
}

// AccountStore is the externally owned account persistence collaborator. Both
// mutating operations must stay idempotent under concurrent retried
// deliveries; the store serializes concurrent updates to the same record.
type AccountStore interface {
	FindByCustomerID(ctx context.Context, customerID string) (Account, bool, error)
	RevokeProAccess(ctx context.Context, accountID string) (Account, error)
	Upsert(ctx context.Context, in UpsertAccountInput) (Account, error)
}

// ChargeAPI fetches and annotates charge objects through the billing
// provider's REST API.
type ChargeAPI interface {
	RetrieveCharge(ctx context.Context, chargeID string) (Charge, error)
	UpdateChargeDescription(ctx context.Context, chargeID string, description string) error
}

// Alerter receives a structured failure description whenever a delivery maps
// to a 4xx/5xx outcome. The engine never constructs or sends notifications
// itself; rendering and delivery belong to the collaborator.
type Alerter interface {
	Notify(ctx context.Context, description string)
}

// ClaimStore provides claim/complete/fail idempotency semantics for event
// replay within a single process. Cross-restart dedupe is an external
// collaborator's responsibility.
type ClaimStore interface {
	Claim(ctx context.Context, key string, lease time.Duration) (claimID string, accepted bool, err error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, retryAt time.Time) error
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
