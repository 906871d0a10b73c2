package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WebhookErrorHeaderMalformed   = "WEBHOOK_HEADER_MALFORMED"
	WebhookErrorSignatureMismatch = "WEBHOOK_SIGNATURE_MISMATCH"
	WebhookErrorSignatureStale    = "WEBHOOK_SIGNATURE_STALE"
	WebhookErrorPayloadInvalid    = "WEBHOOK_PAYLOAD_INVALID"
	WebhookErrorEventTypeMissing  = "WEBHOOK_EVENT_TYPE_MISSING"
	WebhookErrorUnhandledEvent    = "WEBHOOK_UNHANDLED_EVENT"
	WebhookErrorHandlerTimeout    = "WEBHOOK_HANDLER_TIMEOUT"
	WebhookErrorUpstreamFailed    = "WEBHOOK_UPSTREAM_FAILED"
	WebhookErrorInternal          = "WEBHOOK_INTERNAL_ERROR"
)

// WebhookErrorMapper normalizes any error produced by a pipeline stage into a
// goerrors envelope carrying an HTTP status code and a machine-readable text
// code. Rich errors keep their own envelope; bare errors are classified by
// category defaults.
func WebhookErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWebhookErrorEnvelope(mapped)
}

func ensureWebhookErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = webhookHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWebhookTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWebhookTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return WebhookErrorPayloadInvalid
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return WebhookErrorSignatureMismatch
	case goerrors.CategoryOperation:
		return WebhookErrorUpstreamFailed
	default:
		return WebhookErrorInternal
	}
}

func webhookHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
