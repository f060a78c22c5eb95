package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gerai-labs/backend-gerai/internal/order"
)

// Sender posts order lifecycle events to a configured webhook endpoint.
// Delivery is best-effort: a failure is logged and never surfaces to the
// caller, so a flaky subscriber cannot block an order transition.
type Sender struct {
	URL    string
	Secret string
	Client *http.Client
	Logger zerolog.Logger
	Now    func() time.Time
}

// OrderStatusEvent is the wire payload for order status notifications.
type OrderStatusEvent struct {
	EventID    string       `json:"eventId"`
	Topic      string       `json:"topic"`
	TenantID   string       `json:"tenantId"`
	OrderID    string       `json:"orderId"`
	From       order.Status `json:"from"`
	To         order.Status `json:"to"`
	OccurredAt time.Time    `json:"occurredAt"`
}

const topicOrderStatusChanged = "order.status_changed"

func (s *Sender) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Enabled reports whether a destination URL is configured.
func (s *Sender) Enabled() bool {
	return s != nil && s.URL != ""
}

// OrderStatusChanged notifies the endpoint about a status transition.
func (s *Sender) OrderStatusChanged(ctx context.Context, tenantID string, o order.Order, from, to order.Status) {
	if !s.Enabled() {
		return
	}
	event := OrderStatusEvent{
		EventID:    uuid.NewString(),
		Topic:      topicOrderStatusChanged,
		TenantID:   tenantID,
		OrderID:    o.ID,
		From:       from,
		To:         to,
		OccurredAt: s.now(),
	}
	if err := s.deliver(ctx, event); err != nil {
		s.Logger.Warn().Err(err).
			Str("tenant_id", tenantID).
			Str("order_id", o.ID).
			Str("topic", event.Topic).
			Msg("webhook delivery failed")
	}
}

func (s *Sender) deliver(ctx context.Context, event OrderStatusEvent) error {
	ctx, span := otel.Tracer("notify.Sender").Start(ctx, "Sender.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.event_id", event.EventID),
		attribute.String("webhook.topic", event.Topic),
	)

	if err := validateURL(s.URL); err != nil {
		span.RecordError(err)
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return err
	}
	ts := s.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gerai-api-webhooks/1.0")
	req.Header.Set("X-Event-ID", event.EventID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", ComputeSignature(s.Secret, ts, event.EventID, body))

	client := s.Client
	if client == nil {
		client = HTTPClient(5 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	return nil
}

// ComputeSignature calculates the webhook signature for the provided payload.
// The format is HMAC-SHA256 over "<ts>.<eventID>.<body>" using the shared secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns an HTTP client configured for webhook delivery.
func HTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
