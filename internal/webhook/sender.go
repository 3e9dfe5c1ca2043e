// Package webhook delivers event payloads to the operator's endpoint
// and decodes the action response.
package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/gatehook/internal/config"
	"github.com/nextlevelbuilder/gatehook/internal/diag"
	"github.com/nextlevelbuilder/gatehook/pkg/hookwire"
)

// ErrResponseTooLarge reports a response body over the configured cap.
// The whole response is discarded; a partial action list could execute
// a truncated instruction.
var ErrResponseTooLarge = errors.New("webhook response exceeds size limit")

// TransportError wraps network-level delivery failures. The event is
// dropped; there is no retry layer.
type TransportError struct {
	Kind hookwire.Kind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Sender POSTs payloads to the webhook endpoint. The underlying
// client is built once and shared by every handler goroutine.
type Sender struct {
	client     *http.Client
	endpoint   string
	userAgent  string
	maxBody    int64
	maxActions int
	metrics    *diag.Metrics
}

// NewSender builds the sender from validated configuration.
func NewSender(cfg *config.Config, version string, metrics *diag.Metrics) *Sender {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: time.Duration(cfg.ConnectTimeout) * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 15 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Sender{
		client: &http.Client{
			Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
			Transport: transport,
		},
		endpoint:   cfg.Endpoint,
		userAgent:  "gatehook/" + version,
		maxBody:    int64(cfg.MaxResponseBody),
		maxActions: cfg.MaxActions,
		metrics:    metrics,
	}
}

// Deliver POSTs one payload and returns the decoded action response.
// A nil response with nil error means the webhook had nothing for us:
// an empty body, or a body that did not parse as a response.
func (s *Sender) Deliver(ctx context.Context, payload *hookwire.Payload, deliveryID string) (*hookwire.Response, error) {
	kind := payload.Kind()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("handler", string(kind))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("X-Gatehook-Delivery", deliveryID)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.RecordDeliveryFailure(string(kind), "transport")
		slog.Warn("webhook delivery failed", "kind", kind, "delivery_id", deliveryID, "error", err)
		return nil, &TransportError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		s.metrics.RecordDeliveryFailure(string(kind), "transport")
		slog.Warn("webhook response read failed", "kind", kind, "delivery_id", deliveryID, "error", err)
		return nil, &TransportError{Kind: kind, Err: err}
	}

	duration := time.Since(start)
	s.metrics.RecordDelivery(string(kind), statusClass(resp.StatusCode), duration)
	slog.Debug("webhook delivered",
		"kind", kind,
		"delivery_id", deliveryID,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"response_bytes", len(data))

	if int64(len(data)) > s.maxBody {
		s.metrics.RecordDeliveryFailure(string(kind), "oversize")
		slog.Warn("webhook response too large, ignoring actions",
			"kind", kind, "delivery_id", deliveryID, "limit_bytes", s.maxBody)
		return nil, ErrResponseTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}

	var out hookwire.Response
	if err := json.Unmarshal(data, &out); err != nil {
		s.metrics.RecordDeliveryFailure(string(kind), "parse")
		slog.Warn("webhook response not parseable, ignoring actions",
			"kind", kind, "delivery_id", deliveryID, "status", resp.StatusCode, "error", err)
		return nil, nil
	}

	if len(out.Actions) > s.maxActions {
		slog.Warn("webhook returned too many actions, dropping tail",
			"kind", kind,
			"delivery_id", deliveryID,
			"returned", len(out.Actions),
			"max", s.maxActions)
		out.Actions = out.Actions[:s.maxActions]
	}
	return &out, nil
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
