package handlers

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing-webhooks/core"
	"github.com/goliatone/go-billing-webhooks/events"
)

const EventTypeInvoicePaymentSucceeded = "invoice.payment_succeeded"

const DefaultProductLabel = "Pro subscription"

// InvoicePaymentSucceeded annotates the paid invoice's charge with a fixed
// product label, but only when the invoice line items reference a
// subscription plan. Setting the description to a constant makes redelivery a
// natural no-op.
type InvoicePaymentSucceeded struct {
	charges core.ChargeAPI
	label   string
	logger  core.Logger
}

func NewInvoicePaymentSucceeded(charges core.ChargeAPI, label string, logger core.Logger) *InvoicePaymentSucceeded {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultProductLabel
	}
	return &InvoicePaymentSucceeded{
		charges: charges,
		label:   label,
		logger:  glog.Ensure(logger),
	}
}

func (*InvoicePaymentSucceeded) EventType() string { return EventTypeInvoicePaymentSucceeded }

func (h *InvoicePaymentSucceeded) Handle(ctx context.Context, event core.Event) (core.HandlerOutcome, error) {
	if h == nil || h.charges == nil {
		return core.HandlerOutcome{}, fmt.Errorf("handlers: invoice handler requires a charge api")
	}
	if len(events.PlanIDs(event)) == 0 {
		return noOp("No subscription plan on invoice", event), nil
	}
	chargeID := events.ChargeID(event)
	if chargeID == "" {
		return noOp("No charge on invoice", event), nil
	}

	charge, err := h.charges.RetrieveCharge(ctx, chargeID)
	if err != nil {
		return core.HandlerOutcome{}, fmt.Errorf("handlers: retrieve charge %s: %w", chargeID, err)
	}
	if charge.Description == h.label {
		return noOp("Charge already annotated", event), nil
	}

	if err := h.charges.UpdateChargeDescription(ctx, chargeID, h.label); err != nil {
		return core.HandlerOutcome{}, fmt.Errorf("handlers: update charge %s description: %w", chargeID, err)
	}
	h.logger.Info("charge annotated",
		"charge_id", chargeID,
		"event_id", event.ID,
	)
	return core.HandlerOutcome{
		Kind: core.OutcomeOK,
		Metadata: map[string]any{
			"charge_id": chargeID,
		},
	}, nil
}
