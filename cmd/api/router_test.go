package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smmwallet/internal/admin"
	"smmwallet/internal/auth"
	"smmwallet/internal/catalog"
	"smmwallet/internal/domain"
	"smmwallet/internal/handler"
	"smmwallet/internal/ledger"
	"smmwallet/internal/order"
	"smmwallet/internal/pricing"
	"smmwallet/internal/provider"
	"smmwallet/pkg/config"
	"smmwallet/pkg/logger"
)

const testSecret = "router-test-secret"

func newPanel(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("action") {
		case provider.ActionServices:
			w.Write([]byte(`[{"service":1,"name":"Followers","category":"Instagram","rate":"30","min":10,"max":10000}]`))
		case provider.ActionAdd:
			w.Write([]byte(`{"order":42}`))
		case provider.ActionBalance:
			w.Write([]byte(`{"balance":"100.84","currency":"USD"}`))
		default:
			w.Write([]byte(`{"error":"Incorrect request"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.NewNop()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: testSecret},
	}

	client := provider.NewClient(provider.Config{URL: newPanel(t).URL, APIKey: "k", Timeout: 2 * time.Second}, log)
	store := ledger.NewService(ledger.NewMemoryStore(), log)
	cat := catalog.NewService(client, nil, time.Minute, log)
	engine := pricing.NewEngine(decimal.Zero)
	orch := order.NewOrchestrator(store, cat, engine, client, order.NewMemoryRepository(), nil, log)
	t.Cleanup(orch.Close)

	return buildRouter(routerDeps{
		cfg:      cfg,
		log:      log,
		ledger:   store,
		orders:   orch,
		admin:    admin.NewService(store, auth.NewAdminSet("admin-1"), client, orch, log),
		catalog:  cat,
		listings: catalog.NewListings(t.TempDir()),
		pricer:   engine,
		funding:  catalog.Funding{Method: "PayPal", Handle: "pay@example.com", Currency: "USD"},
		deps:     map[string]handler.Pinger{},
	})
}

func call(t *testing.T, h http.Handler, method, path, account, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if account != "" {
		tok, err := auth.NewTokenIssuer(testSecret, time.Hour).Issue(domain.AccountID(account))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/", "", "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/metrics", "", "").Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	h := newTestRouter(t)

	rec := call(t, h, "GET", "/api/v1/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_TopUpAndPurchase(t *testing.T) {
	h := newTestRouter(t)

	rec := call(t, h, "GET", "/api/v1/balance", "member-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.00", decode(t, rec)["balance"])

	rec = call(t, h, "POST", "/api/v1/admin/approve", "member-1", `{"account":"member-1","amount":"50"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, "POST", "/api/v1/admin/approve", "admin-1", `{"account":"member-1","amount":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "50.00", decode(t, rec)["balance"])

	rec = call(t, h, "POST", "/api/v1/orders", "member-1", `{"service_id":"1","link":"https://instagram.com/someone","quantity":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, "GET", "/api/v1/balance", "member-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20.00", decode(t, rec)["balance"])

	rec = call(t, h, "POST", "/api/v1/admin/deduct", "admin-1", `{"account":"member-1","amount":"25"}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "20.00", decode(t, rec)["balance"])
}

func TestRouter_Catalog(t *testing.T) {
	h := newTestRouter(t)

	rec := call(t, h, "GET", "/api/v1/services?query=insta", "member-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Followers")

	rec = call(t, h, "GET", "/api/v1/admin/provider-balance", "admin-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "100.84")
}
