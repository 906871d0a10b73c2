package events

import (
	"strings"

	"github.com/goliatone/go-billing-webhooks/core"
)

// PlanIDs walks the event's data object for plan identifiers: a top-level
// plan, subscription item plans, and invoice line item plans. Not all event
// types carry plan data; malformed or foreign-shaped payloads degrade to an
// empty result.
func PlanIDs(event core.Event) []string {
	var ids []string
	if id := stringField(asMap(event.Object["plan"]), "id"); id != "" {
		ids = append(ids, id)
	}
	for _, key := range []string{"items", "lines"} {
		for _, item := range listData(event.Object[key]) {
			if id := stringField(asMap(asMap(item)["plan"]), "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// CustomerID returns the event object's customer reference, when present.
func CustomerID(event core.Event) string {
	return stringField(event.Object, "customer")
}

// ChargeID returns the event object's charge reference, when present.
func ChargeID(event core.Event) string {
	return stringField(event.Object, "charge")
}

// listData unwraps the provider's `{"object":"list","data":[...]}` shape.
func listData(value any) []any {
	container := asMap(value)
	if container == nil {
		return nil
	}
	items, _ := container["data"].([]any)
	return items
}

func asMap(value any) map[string]any {
	typed, _ := value.(map[string]any)
	return typed
}

func stringField(container map[string]any, key string) string {
	if container == nil {
		return ""
	}
	typed, _ := container[key].(string)
	return strings.TrimSpace(typed)
}
