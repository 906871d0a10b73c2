// Package billingapi is a minimal REST client for the billing provider's
// charge endpoints. It covers only what the webhook handlers need: fetching a
// charge and replacing its description.
package billingapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-billing-webhooks/core"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 1 << 20
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// BaseURL is the provider API root, e.g. https://api.stripe.com.
	BaseURL        string
	Secret         string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
}

type Client struct {
	baseURL    string
	secret     string
	timeout    time.Duration
	httpClient HTTPDoer
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("billingapi: base url is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("billingapi: api secret is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

func (c *Client) RetrieveCharge(ctx context.Context, chargeID string) (core.Charge, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return core.Charge{}, fmt.Errorf("billingapi: charge id is required")
	}

	body, err := c.do(ctx, http.MethodGet, "/v1/charges/"+url.PathEscape(chargeID), nil)
	if err != nil {
		return core.Charge{}, err
	}

	payload := chargePayload{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.Charge{}, upstreamError(
			fmt.Sprintf("decode charge %s response", chargeID),
			err,
			0,
		)
	}
	return payload.toDomain(), nil
}

func (c *Client) UpdateChargeDescription(ctx context.Context, chargeID string, description string) error {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return fmt.Errorf("billingapi: charge id is required")
	}

	values := url.Values{}
	values.Set("description", description)
	_, err := c.do(ctx, http.MethodPost, "/v1/charges/"+url.PathEscape(chargeID), values)
	return err
}

func (c *Client) do(ctx context.Context, method string, path string, form url.Values) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("billingapi: client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(requestCtx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("billingapi: build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstreamError(fmt.Sprintf("%s %s request failed", method, path), err, 0)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return nil, upstreamError(fmt.Sprintf("read %s %s response", method, path), readErr, response.StatusCode)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return nil, upstreamError(
			fmt.Sprintf("%s %s response exceeds %d bytes", method, path, maxResponseBodyBytes),
			nil,
			response.StatusCode,
		)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, upstreamError(
			fmt.Sprintf("%s %s returned status %d: %s", method, path, response.StatusCode, providerErrorMessage(body)),
			nil,
			response.StatusCode,
		)
	}
	return body, nil
}

type chargePayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func (p chargePayload) toDomain() core.Charge {
	return core.Charge{
		ID:          p.ID,
		Description: p.Description,
		Amount:      p.Amount,
		Currency:    p.Currency,
	}
}

func providerErrorMessage(body []byte) string {
	envelope := struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "unreadable provider error"
	}
	message := strings.TrimSpace(envelope.Error.Message)
	if message == "" {
		return "unreadable provider error"
	}
	return message
}

func upstreamError(message string, cause error, upstreamStatus int) error {
	metadata := map[string]any{}
	if upstreamStatus > 0 {
		metadata["upstream_status"] = upstreamStatus
	}
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryOperation, "billingapi: "+message)
	} else {
		err = goerrors.New("billingapi: "+message, goerrors.CategoryOperation)
	}
	err = err.WithCode(http.StatusBadGateway).
		WithTextCode(core.WebhookErrorUpstreamFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
