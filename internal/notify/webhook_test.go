package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gerai-labs/backend-gerai/internal/notify"
	"github.com/gerai-labs/backend-gerai/internal/order"
)

func TestOrderStatusChangedSignatureAndHeaders(t *testing.T) {
	type recorded struct {
		req  *http.Request
		body []byte
	}
	received := make(chan recorded, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- recorded{req: r, body: body}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	sender := &notify.Sender{
		URL:    srv.URL,
		Secret: "secret",
		Client: srv.Client(),
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	}

	o := order.Order{ID: "ord-1", OrderStatus: order.StatusConfirmed}
	sender.OrderStatusChanged(context.Background(), "acme", o, order.StatusPending, order.StatusConfirmed)

	record := <-received
	req := record.req
	require.Equal(t, "application/json", req.Header.Get("Content-Type"))
	eventID := req.Header.Get("X-Event-ID")
	require.NotEmpty(t, eventID)
	timestamp := req.Header.Get("X-Timestamp")
	require.Equal(t, strconv.FormatInt(now.Unix(), 10), timestamp)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	require.NoError(t, err)
	require.Equal(t, notify.ComputeSignature("secret", ts, eventID, record.body), req.Header.Get("X-Signature"))

	var event notify.OrderStatusEvent
	require.NoError(t, json.Unmarshal(record.body, &event))
	require.Equal(t, "acme", event.TenantID)
	require.Equal(t, "ord-1", event.OrderID)
	require.Equal(t, order.StatusPending, event.From)
	require.Equal(t, order.StatusConfirmed, event.To)
	require.Equal(t, "order.status_changed", event.Topic)
}

func TestOrderStatusChangedFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	sender := &notify.Sender{
		URL:    srv.URL,
		Secret: "secret",
		Client: srv.Client(),
		Logger: zerolog.Nop(),
	}

	// Must not panic or propagate the failure.
	sender.OrderStatusChanged(context.Background(), "acme", order.Order{ID: "ord-1"}, order.StatusPending, order.StatusCancelled)
}

func TestSenderDisabledWithoutURL(t *testing.T) {
	var sender *notify.Sender
	require.False(t, sender.Enabled())

	sender = &notify.Sender{}
	require.False(t, sender.Enabled())
	sender.OrderStatusChanged(context.Background(), "acme", order.Order{}, order.StatusPending, order.StatusConfirmed)
}
