package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-billing-webhooks/core"
)

type stubHandler struct {
	eventType string
	outcome   core.HandlerOutcome
	err       error
	calls     int
	sleep     time.Duration
}

func (h *stubHandler) EventType() string { return h.eventType }

func (h *stubHandler) Handle(ctx context.Context, _ core.Event) (core.HandlerOutcome, error) {
	h.calls++
	if h.sleep > 0 {
		select {
		case <-time.After(h.sleep):
		case <-ctx.Done():
			return core.HandlerOutcome{}, ctx.Err()
		}
	}
	return h.outcome, h.err
}

func TestDispatcher_RoutesToRegisteredHandler(t *testing.T) {
	dispatcher := NewDispatcher()
	handler := &stubHandler{
		eventType: "customer.subscription.deleted",
		outcome:   core.HandlerOutcome{Kind: core.OutcomeOK, Message: "OK"},
	}
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	event := core.Event{ID: "evt_1", Type: "customer.subscription.deleted"}
	outcome, err := dispatcher.Dispatch(context.Background(), event, core.VerdictInNamespace)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Kind != core.OutcomeOK {
		t.Fatalf("expected ok outcome, got %s", outcome.Kind)
	}
	if handler.calls != 1 {
		t.Fatalf("expected one handler call, got %d", handler.calls)
	}
}

func TestDispatcher_NotApplicableDispatchesLikeInNamespace(t *testing.T) {
	dispatcher := NewDispatcher()
	handler := &stubHandler{eventType: "customer.subscription.deleted"}
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	event := core.Event{ID: "evt_1", Type: "customer.subscription.deleted"}
	if _, err := dispatcher.Dispatch(context.Background(), event, core.VerdictNotApplicable); err != nil {
		t.Fatalf("dispatch not-applicable: %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("expected handler call for not-applicable verdict")
	}
}

func TestDispatcher_OutOfNamespaceNeverInvokesHandler(t *testing.T) {
	dispatcher := NewDispatcher()
	handler := &stubHandler{eventType: "invoice.payment_succeeded"}
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	event := core.Event{ID: "evt_1", Type: "invoice.payment_succeeded"}
	outcome, err := dispatcher.Dispatch(context.Background(), event, core.VerdictOutOfNamespace)
	if err != nil {
		t.Fatalf("dispatch out-of-namespace: %v", err)
	}
	if outcome.Kind != core.OutcomeNoOp {
		t.Fatalf("expected no-op outcome, got %s", outcome.Kind)
	}
	if outcome.Message != MsgUnhandledPlan {
		t.Fatalf("expected %q, got %q", MsgUnhandledPlan, outcome.Message)
	}
	if handler.calls != 0 {
		t.Fatalf("expected handler not to be invoked, got %d calls", handler.calls)
	}
}

func TestDispatcher_UnhandledEventTypeFailsLoudly(t *testing.T) {
	dispatcher := NewDispatcher()

	event := core.Event{ID: "evt_1", Type: "charge.refunded"}
	_, err := dispatcher.Dispatch(context.Background(), event, core.VerdictInNamespace)
	if err == nil {
		t.Fatalf("expected unhandled event type error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.WebhookErrorUnhandledEvent {
		t.Fatalf("expected %s, got %s", core.WebhookErrorUnhandledEvent, richErr.TextCode)
	}
	if richErr.Code != 500 {
		t.Fatalf("expected 500-class outcome, got %d", richErr.Code)
	}
	if richErr.Message != "Unhandled webhook event type: charge.refunded" {
		t.Fatalf("unexpected message %q", richErr.Message)
	}
}

func TestDispatcher_DuplicateRegistrationConflicts(t *testing.T) {
	dispatcher := NewDispatcher()
	if err := dispatcher.Register(&stubHandler{eventType: "invoice.payment_succeeded"}); err != nil {
		t.Fatalf("register handler: %v", err)
	}
	err := dispatcher.Register(&stubHandler{eventType: "invoice.payment_succeeded"})
	if err == nil {
		t.Fatalf("expected duplicate registration conflict")
	}
}

func TestDispatcher_HandlerErrorWrapsUpstream(t *testing.T) {
	dispatcher := NewDispatcher()
	cause := errors.New("billing api unavailable")
	if err := dispatcher.Register(&stubHandler{eventType: "invoice.payment_succeeded", err: cause}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	event := core.Event{ID: "evt_1", Type: "invoice.payment_succeeded"}
	_, err := dispatcher.Dispatch(context.Background(), event, core.VerdictInNamespace)
	if err == nil {
		t.Fatalf("expected handler failure to propagate")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.WebhookErrorUpstreamFailed {
		t.Fatalf("expected %s, got %s", core.WebhookErrorUpstreamFailed, richErr.TextCode)
	}
}

func TestDispatcher_HandlerDeadlineSurfacesTimeout(t *testing.T) {
	dispatcher := NewDispatcher()
	dispatcher.HandlerTimeout = 10 * time.Millisecond
	if err := dispatcher.Register(&stubHandler{eventType: "invoice.payment_succeeded", sleep: time.Second}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	event := core.Event{ID: "evt_1", Type: "invoice.payment_succeeded"}
	_, err := dispatcher.Dispatch(context.Background(), event, core.VerdictInNamespace)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.WebhookErrorHandlerTimeout {
		t.Fatalf("expected %s, got %s", core.WebhookErrorHandlerTimeout, richErr.TextCode)
	}
	if richErr.Code != 500 {
		t.Fatalf("expected retryable 500, got %d", richErr.Code)
	}
}
