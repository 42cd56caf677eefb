package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smmwallet/internal/domain"
	pkgerrors "smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

// panel serves canned bodies per action and counts calls.
type panel struct {
	t      *testing.T
	bodies map[string]string
	status map[string]int
	delay  time.Duration
	calls  map[string]*int32
}

func newPanel(t *testing.T) *panel {
	return &panel{
		t:      t,
		bodies: map[string]string{},
		status: map[string]int{},
		calls:  map[string]*int32{},
	}
}

func (p *panel) on(action string, status int, body string) *panel {
	p.bodies[action] = body
	p.status[action] = status
	p.calls[action] = new(int32)
	return p
}

func (p *panel) count(action string) int {
	return int(atomic.LoadInt32(p.calls[action]))
}

func (p *panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(p.t, http.MethodPost, r.Method)
	assert.NoError(p.t, r.ParseForm())
	assert.Equal(p.t, "test-key", r.PostForm.Get("key"))

	action := r.PostForm.Get("action")
	if c, ok := p.calls[action]; ok {
		atomic.AddInt32(c, 1)
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-r.Context().Done():
			return
		}
	}
	body, ok := p.bodies[action]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(p.status[action])
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, p *panel) *Client {
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		URL:             srv.URL,
		APIKey:          "test-key",
		Timeout:         time.Second,
		MaxRetries:      2,
		RetryBackoff:    time.Millisecond,
		MaxRetryBackoff: 5 * time.Millisecond,
	}, logger.NewNop())
}

func TestListServices(t *testing.T) {
	p := newPanel(t).on(ActionServices, http.StatusOK, `[
		{"service": 1, "name": "Followers", "type": "Default", "category": "Instagram", "rate": "0.90", "min": "50", "max": "10000", "refill": true},
		{"service": "abc-2", "name": "Likes", "category": "TikTok", "rate": 1.5},
		{"name": "no id", "rate": "1"},
		{"service": 3, "name": "bad rate", "rate": "free"}
	]`)
	c := newTestClient(t, p)

	entries, err := c.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "1", entries[0].ServiceID)
	assert.Equal(t, "Instagram", entries[0].Category)
	assert.Equal(t, "0.9", entries[0].Rate.String())
	assert.Equal(t, 50, entries[0].Min)
	assert.Equal(t, 10000, entries[0].Max)
	assert.True(t, entries[0].Refill)

	assert.Equal(t, "abc-2", entries[1].ServiceID)
	assert.Equal(t, "1.5", entries[1].Rate.String())
	assert.Zero(t, entries[1].Min)
	assert.False(t, entries[1].Refill)
}

func TestListServices_ErrorPayload(t *testing.T) {
	c := newTestClient(t, newPanel(t).on(ActionServices, http.StatusOK, `{"error":"Invalid API key"}`))

	_, err := c.ListServices(context.Background())
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.ErrorIs(t, err, pkgerrors.ErrProvider)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestListServices_MalformedShape(t *testing.T) {
	c := newTestClient(t, newPanel(t).on(ActionServices, http.StatusOK, `"nope"`))

	_, err := c.ListServices(context.Background())
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestListServices_RetriesTransportFailures(t *testing.T) {
	p := newPanel(t).on(ActionServices, http.StatusBadGateway, `bad gateway`)
	c := newTestClient(t, p)

	_, err := c.ListServices(context.Background())
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, 3, p.count(ActionServices))
}

func TestSubmitOrder(t *testing.T) {
	p := newPanel(t).on(ActionAdd, http.StatusOK, `{"order": 23501}`)
	c := newTestClient(t, p)

	id, err := c.SubmitOrder(context.Background(), "1", "https://instagram.com/x", 1000)
	require.NoError(t, err)
	assert.Equal(t, "23501", id)
}

func TestSubmitOrder_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"explicit rejection", http.StatusOK, `{"error":"Not enough funds on balance"}`, KindRejected},
		{"client error status", http.StatusUnauthorized, `{"error":"Invalid API key"}`, KindRejected},
		{"server error", http.StatusInternalServerError, `oops`, KindTransport},
		{"empty object", http.StatusOK, `{}`, KindMalformed},
		{"order and error together", http.StatusOK, `{"order":123,"error":"x"}`, KindMalformed},
		{"not json", http.StatusOK, `<html>maintenance</html>`, KindMalformed},
		{"array", http.StatusOK, `[1,2]`, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPanel(t).on(ActionAdd, tt.status, tt.body)
			c := newTestClient(t, p)

			_, err := c.SubmitOrder(context.Background(), "1", "link", 10)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Equal(t, 1, p.count(ActionAdd), "order submission must not be retried")
		})
	}
}

func TestSubmitOrder_TimeoutIsTransport(t *testing.T) {
	p := newPanel(t).on(ActionAdd, http.StatusOK, `{"order": 1}`)
	p.delay = 500 * time.Millisecond
	c := newTestClient(t, p)
	c.cfg.Timeout = 20 * time.Millisecond

	_, err := c.SubmitOrder(context.Background(), "1", "link", 10)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, p.count(ActionAdd))
}

func TestQueryStatus_Sentinels(t *testing.T) {
	c := newTestClient(t, newPanel(t).on(ActionStatus, http.StatusOK, `{"status":"In progress","remains":"157"}`))

	st, err := c.QueryStatus(context.Background(), "23501")
	require.NoError(t, err)
	assert.Equal(t, &domain.OrderStatus{
		OrderID:    "23501",
		StartCount: domain.NotAvailable,
		Remains:    "157",
		Status:     "In progress",
		Charge:     domain.NotAvailable,
		Currency:   domain.NotAvailable,
	}, st)
}

func TestQueryStatus_Error(t *testing.T) {
	c := newTestClient(t, newPanel(t).on(ActionStatus, http.StatusOK, `{"error":"Incorrect order ID"}`))

	_, err := c.QueryStatus(context.Background(), "nope")
	assert.True(t, IsRejected(err))
}

func TestRefill(t *testing.T) {
	p := newPanel(t).
		on(ActionRefill, http.StatusOK, `{"refill":"1"}`).
		on(ActionRefillStatus, http.StatusOK, `{}`)
	c := newTestClient(t, p)

	id, err := c.SubmitRefill(context.Background(), "23501")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	st, err := c.QueryRefillStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownStatus, st.Status)
}

func TestSubmitRefill_NoRefillID(t *testing.T) {
	p := newPanel(t).on(ActionRefill, http.StatusOK, `{"status":"nope"}`)
	c := newTestClient(t, p)

	_, err := c.SubmitRefill(context.Background(), "23501")
	assert.True(t, IsRejected(err))
	assert.Equal(t, 1, p.count(ActionRefill))
}

func TestQueryBalance_Defaults(t *testing.T) {
	c := newTestClient(t, newPanel(t).on(ActionBalance, http.StatusOK, `{"balance": 100.84292}`))

	bal, err := c.QueryBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100.84292", bal.Amount)
	assert.Equal(t, "USD", bal.Currency)
}

func TestRetryPolicy(t *testing.T) {
	c := NewClient(Config{
		URL:             "http://panel.invalid",
		MaxRetries:      3,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 250 * time.Millisecond,
	}, logger.NewNop())

	b := c.retryPolicy(context.Background())
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 250*time.Millisecond, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestListServices_CancelledContextStopsRetrying(t *testing.T) {
	p := newPanel(t).on(ActionServices, http.StatusBadGateway, `bad gateway`)
	c := newTestClient(t, p)
	c.cfg.RetryBackoff = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListServices(ctx)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, p.count(ActionServices))
}

func TestSubmitRefill_RefillAndErrorTogether(t *testing.T) {
	p := newPanel(t).on(ActionRefill, http.StatusOK, `{"refill":"9","error":"x"}`)
	c := newTestClient(t, p)

	_, err := c.SubmitRefill(context.Background(), "23501")
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.Equal(t, 1, p.count(ActionRefill))
}
