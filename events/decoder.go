package events

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-billing-webhooks/core"
)

const (
	MsgInvalidPayload   = "Unable to parse webhook payload"
	MsgMissingEventType = "Webhook event has no type"
	MsgMissingEventID   = "Webhook event has no id"
)

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object map[string]any `json:"object"`
	} `json:"data"`
}

// Decode parses a verified raw payload into an Event. A payload without a
// type or an id is structurally invalid and must never reach handler logic,
// so it fails here rather than being deferred to dispatch. The type check
// runs first: a type-less payload reports the missing type whatever else it
// carries. Ids are required because replay claims key on them.
func Decode(body []byte) (core.Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.Event{}, goerrors.Wrap(err, goerrors.CategoryBadInput, MsgInvalidPayload).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.WebhookErrorPayloadInvalid)
	}
	eventType := strings.TrimSpace(envelope.Type)
	if eventType == "" {
		return core.Event{}, goerrors.New(MsgMissingEventType, goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.WebhookErrorEventTypeMissing).
			WithMetadata(map[string]any{"event_id": strings.TrimSpace(envelope.ID)})
	}
	eventID := strings.TrimSpace(envelope.ID)
	if eventID == "" {
		return core.Event{}, goerrors.New(MsgMissingEventID, goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.WebhookErrorPayloadInvalid).
			WithMetadata(map[string]any{"event_type": eventType})
	}
	return core.Event{
		ID:     eventID,
		Type:   eventType,
		Object: envelope.Data.Object,
	}, nil
}
