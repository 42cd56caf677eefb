// Package provider is a stateless adapter to an SMM reseller panel API
// (form-encoded POST, JSON responses).
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"smmwallet/internal/domain"
	"smmwallet/pkg/logger"
)

// Panel actions
const (
	ActionServices     = "services"
	ActionAdd          = "add"
	ActionStatus       = "status"
	ActionRefill       = "refill"
	ActionRefillStatus = "refill_status"
	ActionBalance      = "balance"
)

const maxResponseBytes = 8 << 20

type Config struct {
	URL             string
	APIKey          string
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// Client talks to the panel. Every call is bounded by Config.Timeout.
// Read-only actions retry transport failures with exponential backoff;
// ActionAdd and ActionRefill are sent exactly once.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: log,
	}
}

// ListServices fetches the provider catalog. Entries without a service id
// or with an unparseable rate cannot be priced and are skipped.
func (c *Client) ListServices(ctx context.Context) ([]domain.CatalogEntry, error) {
	body, err := c.call(ctx, ActionServices, nil, true)
	if err != nil {
		return nil, err
	}

	switch shape(body) {
	case '[':
	case '{':
		return nil, c.errorOrMalformed(ActionServices, body)
	default:
		return nil, malformed(ActionServices, "expected a service list", body)
	}

	var raw []serviceResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed(ActionServices, err.Error(), body)
	}

	entries := make([]domain.CatalogEntry, 0, len(raw))
	skipped := 0
	for _, s := range raw {
		if !s.Service.present() {
			skipped++
			continue
		}
		rate, err := decimal.NewFromString(s.Rate.value)
		if err != nil || rate.IsNegative() {
			skipped++
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			ServiceID: s.Service.value,
			Name:      s.Name.or(domain.NotAvailable),
			Category:  s.Category.or(domain.NotAvailable),
			Type:      s.Type.value,
			Rate:      rate,
			Min:       s.Min.int(),
			Max:       s.Max.int(),
			Refill:    s.Refill.bool(),
		})
	}
	if skipped > 0 {
		c.logger.Warn("Skipped unusable catalog entries", map[string]interface{}{
			"skipped": skipped,
			"kept":    len(entries),
		})
	}
	return entries, nil
}

// SubmitOrder places an order and returns the provider order id.
func (c *Client) SubmitOrder(ctx context.Context, serviceID, link string, quantity int) (string, error) {
	params := url.Values{}
	params.Set("service", serviceID)
	params.Set("link", link)
	params.Set("quantity", strconv.Itoa(quantity))

	body, err := c.call(ctx, ActionAdd, params, false)
	if err != nil {
		return "", err
	}
	var resp addResponse
	if err := decodeObject(ActionAdd, body, &resp); err != nil {
		return "", err
	}
	if resp.Error.present() && resp.Order.present() {
		return "", malformed(ActionAdd, "response carries both order and error", body)
	}
	if resp.Error.present() {
		return "", rejected(ActionAdd, resp.Error.value, 0)
	}
	if !resp.Order.present() {
		return "", malformed(ActionAdd, "response carries neither order nor error", body)
	}
	return resp.Order.value, nil
}

// QueryStatus returns the provider's view of an order.
func (c *Client) QueryStatus(ctx context.Context, orderID string) (*domain.OrderStatus, error) {
	params := url.Values{}
	params.Set("order", orderID)

	body, err := c.call(ctx, ActionStatus, params, true)
	if err != nil {
		return nil, err
	}
	var resp statusResponse
	if err := decodeObject(ActionStatus, body, &resp); err != nil {
		return nil, err
	}
	if resp.Error.present() {
		return nil, rejected(ActionStatus, resp.Error.value, 0)
	}
	return &domain.OrderStatus{
		OrderID:    orderID,
		StartCount: resp.StartCount.or(domain.NotAvailable),
		Remains:    resp.Remains.or(domain.NotAvailable),
		Status:     resp.Status.or(domain.NotAvailable),
		Charge:     resp.Charge.or(domain.NotAvailable),
		Currency:   resp.Currency.or(domain.NotAvailable),
	}, nil
}

// SubmitRefill requests a refill of an existing order.
func (c *Client) SubmitRefill(ctx context.Context, orderID string) (string, error) {
	params := url.Values{}
	params.Set("order", orderID)

	body, err := c.call(ctx, ActionRefill, params, false)
	if err != nil {
		return "", err
	}
	var resp refillResponse
	if err := decodeObject(ActionRefill, body, &resp); err != nil {
		return "", err
	}
	if resp.Error.present() && resp.Refill.present() {
		return "", malformed(ActionRefill, "response carries both refill and error", body)
	}
	if resp.Error.present() {
		return "", rejected(ActionRefill, resp.Error.value, 0)
	}
	if !resp.Refill.present() {
		return "", rejected(ActionRefill, fmt.Sprintf("no refill created: %s", strings.TrimSpace(string(body))), 0)
	}
	return resp.Refill.value, nil
}

// QueryRefillStatus returns the status of a refill.
func (c *Client) QueryRefillStatus(ctx context.Context, refillID string) (*domain.RefillRequest, error) {
	params := url.Values{}
	params.Set("refill", refillID)

	body, err := c.call(ctx, ActionRefillStatus, params, true)
	if err != nil {
		return nil, err
	}
	var resp refillStatusResponse
	if err := decodeObject(ActionRefillStatus, body, &resp); err != nil {
		return nil, err
	}
	if resp.Error.present() {
		return nil, rejected(ActionRefillStatus, resp.Error.value, 0)
	}
	return &domain.RefillRequest{
		ID:     refillID,
		Status: resp.Status.or(domain.UnknownStatus),
	}, nil
}

// QueryBalance returns the reseller account balance.
func (c *Client) QueryBalance(ctx context.Context) (*domain.ProviderBalance, error) {
	body, err := c.call(ctx, ActionBalance, nil, true)
	if err != nil {
		return nil, err
	}
	var resp balanceResponse
	if err := decodeObject(ActionBalance, body, &resp); err != nil {
		return nil, err
	}
	if resp.Error.present() {
		return nil, rejected(ActionBalance, resp.Error.value, 0)
	}
	return &domain.ProviderBalance{
		Amount:   resp.Balance.or("0"),
		Currency: resp.Currency.or("USD"),
	}, nil
}

func (c *Client) errorOrMalformed(action string, body []byte) error {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.present() {
		return rejected(action, resp.Error.value, 0)
	}
	return malformed(action, "unexpected response shape", body)
}

func decodeObject(action string, body []byte, out interface{}) error {
	if shape(body) != '{' {
		return malformed(action, "expected a JSON object", body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return malformed(action, err.Error(), body)
	}
	return nil
}

// call performs the request. With retry set, transport failures are retried
// with exponential backoff up to MaxRetries; any other outcome is final.
func (c *Client) call(ctx context.Context, action string, params url.Values, retry bool) ([]byte, error) {
	if !retry || c.cfg.MaxRetries == 0 {
		return c.post(ctx, action, params)
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		var err error
		body, err = c.post(ctx, action, params)
		if err != nil && (KindOf(err) != KindTransport || ctx.Err() != nil) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		c.logger.Warn("Retrying provider call", map[string]interface{}{
			"action":   action,
			"attempt":  attempt + 1,
			"delay_ms": delay.Milliseconds(),
			"error":    err.Error(),
		})
	}

	if err := backoff.RetryNotify(op, c.retryPolicy(ctx), notify); err != nil {
		if KindOf(err) == "" {
			return nil, transport(action, 0, err)
		}
		return nil, err
	}
	return body, nil
}

// retryPolicy doubles from RetryBackoff, capped at MaxRetryBackoff, for at
// most MaxRetries retries.
func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	opts := []backoff.ExponentialBackOffOpts{
		backoff.WithInitialInterval(c.cfg.RetryBackoff),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	}
	if c.cfg.MaxRetryBackoff > 0 {
		opts = append(opts, backoff.WithMaxInterval(c.cfg.MaxRetryBackoff))
	}
	b := backoff.NewExponentialBackOff(opts...)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
}

func (c *Client) post(ctx context.Context, action string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	form.Set("key", c.cfg.APIKey)
	form.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Action: action, Kind: KindRejected, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observeCall(action, KindTransport, start)
		return nil, transport(action, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observeCall(action, KindTransport, start)
		return nil, transport(action, resp.StatusCode, err)
	}

	c.logger.Debug("Provider call", map[string]interface{}{
		"action":      action,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusRequestTimeout:
		observeCall(action, KindTransport, start)
		return nil, transport(action, resp.StatusCode, fmt.Errorf("%s", http.StatusText(resp.StatusCode)))
	case resp.StatusCode >= 400:
		observeCall(action, KindRejected, start)
		msg := http.StatusText(resp.StatusCode)
		var er errorResponse
		if shape(body) == '{' && json.Unmarshal(body, &er) == nil && er.Error.present() {
			msg = er.Error.value
		}
		return nil, rejected(action, msg, resp.StatusCode)
	}

	observeCall(action, "", start)
	return body, nil
}
