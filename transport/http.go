// Package transport exposes the delivery pipeline over HTTP. The handler
// reads the raw body exactly as received; any re-serialization before
// verification would break the signature.
package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing-webhooks/core"
)

// SignatureHeader is the request header carrying `t=<unix>,v1=<hex>` pairs.
const SignatureHeader = "Stripe-Signature"

// WebhookPath is the route deliveries are posted to.
const WebhookPath = "/webhooks/billing"

const maxBodyBytes = 1 << 20

// Processor is the pipeline contract the handler drives.
type Processor interface {
	Process(ctx context.Context, req core.SignedRequest) core.Result
}

// Handler serves webhook deliveries over HTTP.
type Handler struct {
	processor Processor
	logger    core.Logger
}

func NewHandler(processor Processor, logger core.Logger) *Handler {
	return &Handler{
		processor: processor,
		logger:    glog.Ensure(logger),
	}
}

// Router mounts the webhook endpoint on a chi router with request logging and
// panic recovery.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post(WebhookPath, h.ServeWebhook)
	return r
}

// ServeWebhook reads the delivery and writes the pipeline's result verbatim.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.processor == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "webhook processor is not configured",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("read webhook body failed", "error", err.Error())
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Unable to read request body",
		})
		return
	}

	result := h.processor.Process(r.Context(), core.SignedRequest{
		Body:            body,
		SignatureHeader: r.Header.Get(SignatureHeader),
	})
	writeJSON(w, result.StatusCode, result.Body)
}

func writeJSON(w http.ResponseWriter, statusCode int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if statusCode <= 0 {
		statusCode = http.StatusInternalServerError
	}
	w.WriteHeader(statusCode)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
