package engine

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-billing-webhooks/core"
)

// MsgOK is the acknowledgment body for a fully processed delivery.
const MsgOK = "OK"

// successResult acknowledges a processed delivery. No-op outcomes echo their
// reason so provider dashboards show why nothing changed.
func successResult(outcome core.HandlerOutcome) core.Result {
	message := MsgOK
	if outcome.Kind == core.OutcomeNoOp && strings.TrimSpace(outcome.Message) != "" {
		message = outcome.Message
	}
	return core.Result{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"message": message},
	}
}

// errorResult maps a pipeline failure onto its HTTP shape. The body carries
// only the envelope message; metadata stays in logs.
func errorResult(err error) core.Result {
	mapped := core.WebhookErrorMapper(err)
	if mapped == nil {
		return core.Result{
			StatusCode: http.StatusInternalServerError,
			Body:       map[string]any{"error": "An unexpected error occurred"},
		}
	}
	return core.Result{
		StatusCode: mapped.Code,
		Body:       map[string]any{"error": mapped.Message},
	}
}
