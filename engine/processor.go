package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing-webhooks/core"
	"github.com/goliatone/go-billing-webhooks/dispatch"
	"github.com/goliatone/go-billing-webhooks/events"
	"github.com/goliatone/go-billing-webhooks/handlers"
	"github.com/goliatone/go-billing-webhooks/namespace"
	"github.com/goliatone/go-billing-webhooks/signature"
)

// MsgDuplicateDelivery acknowledges a redelivered event that a prior claim
// already settled.
const MsgDuplicateDelivery = "Duplicate delivery"

const defaultClaimLease = 30 * time.Second

// Engine is the delivery pipeline. Construct it with New; the zero value is
// not usable.
type Engine struct {
	verifier        *signature.Verifier
	dispatcher      *dispatch.Dispatcher
	namespacePrefix string
	claims          core.ClaimStore
	claimLease      time.Duration
	alerter         core.Alerter
	logger          core.Logger
	now             func() time.Time
}

type Option func(*builder)

type builder struct {
	accounts   core.AccountStore
	charges    core.ChargeAPI
	extra      []core.Handler
	claims     core.ClaimStore
	claimLease time.Duration
	alerter    core.Alerter
	provider   core.LoggerProvider
	logger     core.Logger
	now        func() time.Time
}

func WithAccountStore(store core.AccountStore) Option {
	return func(b *builder) { b.accounts = store }
}

func WithChargeAPI(api core.ChargeAPI) Option {
	return func(b *builder) { b.charges = api }
}

// WithHandler registers an additional handler beyond the built-in pair.
func WithHandler(handler core.Handler) Option {
	return func(b *builder) { b.extra = append(b.extra, handler) }
}

// WithClaimStore enables in-process dedupe keyed by event id. Without it every
// delivery dispatches and idempotency rests on the handlers alone.
func WithClaimStore(store core.ClaimStore) Option {
	return func(b *builder) { b.claims = store }
}

func WithClaimLease(lease time.Duration) Option {
	return func(b *builder) { b.claimLease = lease }
}

func WithAlerter(alerter core.Alerter) Option {
	return func(b *builder) { b.alerter = alerter }
}

func WithLogger(logger core.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *builder) { b.provider = provider }
}

func WithClock(now func() time.Time) Option {
	return func(b *builder) { b.now = now }
}

// New wires the pipeline from configuration. The built-in handlers register
// only when their collaborator is present, so a deploy that owns no account
// store still verifies and classifies deliveries.
func New(cfg core.Config, options ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &builder{}
	for _, option := range options {
		if option != nil {
			option(b)
		}
	}

	_, logger := glog.Resolve(cfg.ServiceName, b.provider, b.logger)

	dispatcher := dispatch.NewDispatcher()
	dispatcher.HandlerTimeout = time.Duration(cfg.Handlers.TimeoutSeconds) * time.Second
	if b.accounts != nil {
		if err := dispatcher.Register(handlers.NewSubscriptionDeleted(b.accounts, logger)); err != nil {
			return nil, err
		}
	}
	if b.charges != nil {
		if err := dispatcher.Register(handlers.NewInvoicePaymentSucceeded(b.charges, cfg.Handlers.ProductLabel, logger)); err != nil {
			return nil, err
		}
	}
	for _, handler := range b.extra {
		if err := dispatcher.Register(handler); err != nil {
			return nil, err
		}
	}

	alerter := b.alerter
	if alerter == nil {
		alerter = NewLogAlerter(logger)
	}
	now := b.now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	lease := b.claimLease
	if lease <= 0 {
		lease = defaultClaimLease
	}

	verifier := signature.NewVerifier(
		cfg.Signature.Secret,
		time.Duration(cfg.Signature.ToleranceSeconds)*time.Second,
	)
	verifier.Now = now

	return &Engine{
		verifier:        verifier,
		dispatcher:      dispatcher,
		namespacePrefix: cfg.NamespacePrefix,
		claims:          b.claims,
		claimLease:      lease,
		alerter:         alerter,
		logger:          logger,
		now:             now,
	}, nil
}

// EventTypes returns the registered event types, unordered.
func (e *Engine) EventTypes() []string {
	if e == nil {
		return nil
	}
	return e.dispatcher.EventTypes()
}

// Process runs one delivery through the pipeline and always yields a result
// the transport can write as-is. Rejections at any stage short-circuit the
// stages after them and notify the alerter; out-of-namespace events are
// acknowledged without reaching a handler, so foreign systems sharing the
// endpoint never trigger retries or alerts.
func (e *Engine) Process(ctx context.Context, req core.SignedRequest) core.Result {
	if e == nil {
		return errorResult(fmt.Errorf("engine: engine is nil"))
	}
	startedAt := e.now()

	if err := e.verifier.Verify(req.Body, req.SignatureHeader); err != nil {
		return e.reject(ctx, startedAt, "verify", err, map[string]any{
			"body_bytes": len(req.Body),
		})
	}

	event, err := events.Decode(req.Body)
	if err != nil {
		return e.reject(ctx, startedAt, "decode", err, map[string]any{
			"body_bytes": len(req.Body),
		})
	}
	fields := map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
	}

	var claimID string
	if e.claims != nil && event.ID != "" {
		id, accepted, claimErr := e.claims.Claim(ctx, event.ID, e.claimLease)
		if claimErr != nil {
			return e.reject(ctx, startedAt, "claim", claimErr, fields)
		}
		if !accepted {
			fields["deduped"] = true
			e.observe(ctx, startedAt, "process", nil, fields)
			return successResult(core.HandlerOutcome{
				Kind:    core.OutcomeNoOp,
				Message: MsgDuplicateDelivery,
			})
		}
		claimID = id
	}

	verdict := namespace.Classify(event, e.namespacePrefix)
	fields["verdict"] = string(verdict)

	outcome, err := e.dispatcher.Dispatch(ctx, event, verdict)
	if err != nil {
		if claimID != "" {
			// Release the claim for immediate reclaim: the provider owns retry
			// scheduling, and its redelivery must reach the handler again.
			if failErr := e.claims.Fail(ctx, claimID, err, e.now()); failErr != nil {
				e.logger.Warn("claim release failed", "claim_id", claimID, "error", failErr.Error())
			}
		}
		return e.reject(ctx, startedAt, "dispatch", err, fields)
	}
	if claimID != "" {
		if completeErr := e.claims.Complete(ctx, claimID); completeErr != nil {
			e.logger.Warn("claim completion failed", "claim_id", claimID, "error", completeErr.Error())
		}
	}

	fields["outcome"] = string(outcome.Kind)
	e.observe(ctx, startedAt, "process", nil, fields)
	return successResult(outcome)
}

func (e *Engine) reject(
	ctx context.Context,
	startedAt time.Time,
	stage string,
	err error,
	fields map[string]any,
) core.Result {
	result := errorResult(err)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["stage"] = stage
	fields["status_code"] = result.StatusCode
	e.observe(ctx, startedAt, stage, err, fields)
	e.alerter.Notify(ctx, fmt.Sprintf("webhook %s rejected: %v (status %d)", stage, result.Body["error"], result.StatusCode))
	return result
}

func (e *Engine) observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if e == nil || e.logger == nil {
		return
	}
	contextFields := cloneFields(fields)
	contextFields["duration_ms"] = e.now().Sub(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	logger := e.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(contextFields))
	}
	args := flattenFields(contextFields)
	if err != nil {
		logger.Error(operation+" failed", args...)
		return
	}
	logger.Info(operation+" succeeded", args...)
}

func cloneFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
