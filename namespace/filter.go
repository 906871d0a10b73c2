// Package namespace partitions events on a shared webhook endpoint by plan
// namespace. One billing account may serve several product lines; filtering
// lets a deployment acknowledge events it does not own instead of erroring,
// so the provider never treats "not mine" as a delivery failure.
package namespace

import (
	"strings"

	"github.com/goliatone/go-billing-webhooks/core"
	"github.com/goliatone/go-billing-webhooks/events"
)

// Classify inspects the event's plan identifiers against prefix. An empty
// prefix disables filtering (single-tenant deployment). Events without plan
// data are NotApplicable and dispatch like in-namespace events. The scan is
// pure and exception free: malformed payloads degrade, they never fail.
func Classify(event core.Event, prefix string) core.NamespaceVerdict {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return core.VerdictInNamespace
	}
	planIDs := events.PlanIDs(event)
	if len(planIDs) == 0 {
		return core.VerdictNotApplicable
	}
	want := prefix + "-"
	for _, planID := range planIDs {
		if !strings.HasPrefix(planID, want) {
			return core.VerdictOutOfNamespace
		}
	}
	return core.VerdictInNamespace
}
