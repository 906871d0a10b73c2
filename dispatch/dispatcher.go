package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-billing-webhooks/core"
)

// MsgUnhandledPlan acknowledges an out-of-namespace delivery. It is a success
// at the transport boundary so the provider does not retry foreign events.
const MsgUnhandledPlan = "Unhandled plan"

// Dispatcher maps event types to handlers. Registration happens during
// wiring; Dispatch runs concurrently afterwards.
type Dispatcher struct {
	HandlerTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]core.Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[string]core.Handler{},
	}
}

func (d *Dispatcher) Register(handler core.Handler) error {
	if d == nil {
		return dispatchInternal("dispatch: dispatcher is nil", nil)
	}
	if handler == nil {
		return dispatchError(
			"dispatch: handler is nil",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			core.WebhookErrorInternal,
			nil,
		)
	}
	eventType := strings.TrimSpace(handler.EventType())
	if eventType == "" {
		return dispatchError(
			"dispatch: handler event type is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			core.WebhookErrorInternal,
			nil,
		)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[eventType]; exists {
		return dispatchError(
			fmt.Sprintf("dispatch: handler already registered for event type %q", eventType),
			goerrors.CategoryConflict,
			http.StatusConflict,
			core.WebhookErrorInternal,
			map[string]any{"event_type": eventType},
		)
	}
	d.handlers[eventType] = handler
	return nil
}

// EventTypes returns the registered event types, unordered.
func (d *Dispatcher) EventTypes() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	types := make([]string, 0, len(d.handlers))
	for eventType := range d.handlers {
		types = append(types, eventType)
	}
	return types
}

// Dispatch routes one classified event. Out-of-namespace events short-circuit
// to a no-op success without touching any handler. Events with no registered
// handler fail loudly; handler failures propagate wrapped with the webhook
// error envelope, with deadline expiry surfaced as a timeout.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	event core.Event,
	verdict core.NamespaceVerdict,
) (core.HandlerOutcome, error) {
	if d == nil {
		return core.HandlerOutcome{}, dispatchInternal("dispatch: dispatcher is nil", nil)
	}
	if !verdict.Dispatchable() {
		return core.HandlerOutcome{
			Kind:    core.OutcomeNoOp,
			Message: MsgUnhandledPlan,
			Metadata: map[string]any{
				"event_id":   event.ID,
				"event_type": event.Type,
				"verdict":    string(verdict),
			},
		}, nil
	}

	handler := d.handlerFor(event.Type)
	if handler == nil {
		return core.HandlerOutcome{}, dispatchError(
			fmt.Sprintf("Unhandled webhook event type: %s", event.Type),
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			core.WebhookErrorUnhandledEvent,
			map[string]any{"event_id": event.ID, "event_type": event.Type},
		)
	}

	handlerCtx := ctx
	if d.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, d.HandlerTimeout)
		defer cancel()
	}

	outcome, err := handler.Handle(handlerCtx, event)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.HandlerOutcome{}, dispatchWrapError(
				err,
				goerrors.CategoryInternal,
				fmt.Sprintf("Webhook handler timed out for event type: %s", event.Type),
				http.StatusInternalServerError,
				core.WebhookErrorHandlerTimeout,
				map[string]any{"event_id": event.ID, "event_type": event.Type},
			)
		}
		return core.HandlerOutcome{}, dispatchWrapError(
			err,
			goerrors.CategoryOperation,
			fmt.Sprintf("Webhook handler failed for event type: %s", event.Type),
			http.StatusBadGateway,
			core.WebhookErrorUpstreamFailed,
			map[string]any{"event_id": event.ID, "event_type": event.Type},
		)
	}
	if outcome.Kind == "" {
		outcome.Kind = core.OutcomeOK
	}
	return outcome, nil
}

func (d *Dispatcher) handlerFor(eventType string) core.Handler {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[strings.TrimSpace(eventType)]
}
