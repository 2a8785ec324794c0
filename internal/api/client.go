package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// envelope is the platform's uniform response shape: either success with a
// data payload or failure with an error string.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Error is a failed platform response surfaced to the stores.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: %s", e.Message)
}

// Client is the REST adapter over the platform API. It implements ChatAPI
// and DocumentAPI.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
	tracer trace.Tracer
}

// New constructs a REST client for the given base URL and bearer token.
func New(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   http,
		logger: logger.With().Str("component", "api_client").Logger(),
		tracer: otel.Tracer("github.com/asterion-health/asterion-go/internal/api"),
	}
}

// do executes a request against the platform and decodes the envelope's data
// payload into out (when out is non-nil). Every call carries a fresh
// correlation id so server logs line up with client traces.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	correlation := uuid.NewString()

	spanCtx, span := c.tracer.Start(ctx, "api."+method+" "+path, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("correlation_id", correlation),
	))
	defer span.End()

	req := c.http.R().
		SetContext(spanCtx).
		SetHeader("X-Correlation-ID", correlation)

	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn().Err(err).Str("path", path).Msg("request failed")
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode response %s %s: %w", method, path, err)
	}

	if !env.Success {
		message := env.Error
		if message == "" {
			message = env.Message
		}
		if message == "" {
			message = "request rejected"
		}
		apiErr := &Error{Status: resp.StatusCode(), Message: message}
		span.RecordError(apiErr)
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode payload %s %s: %w", method, path, err)
	}

	return nil
}
