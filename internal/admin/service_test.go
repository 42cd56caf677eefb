package admin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smmwallet/internal/auth"
	"smmwallet/internal/domain"
	"smmwallet/internal/ledger"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

type MockBalanceSource struct {
	mock.Mock
}

func (m *MockBalanceSource) QueryBalance(ctx context.Context) (*domain.ProviderBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderBalance), args.Error(1)
}

type MockReviewer struct {
	mock.Mock
}

func (m *MockReviewer) ListManualReview(ctx context.Context, limit int) ([]*domain.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockReviewer) Resolve(ctx context.Context, actor domain.AccountID, reference uuid.UUID, refund bool, providerOrderID string) (*domain.Order, error) {
	args := m.Called(ctx, actor, reference, refund, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

const (
	adminID  = domain.AccountID("admin-1")
	memberID = domain.AccountID("member-1")
)

type fixture struct {
	svc      *Service
	store    *ledger.MemoryStore
	provider *MockBalanceSource
	reviewer *MockReviewer
	logs     *bytes.Buffer
}

func newFixture() *fixture {
	f := &fixture{
		store:    ledger.NewMemoryStore(),
		provider: new(MockBalanceSource),
		reviewer: new(MockReviewer),
		logs:     new(bytes.Buffer),
	}
	log := logger.NewWithWriter("test", f.logs, logger.LevelDebug)
	f.svc = NewService(f.store, auth.NewAdminSet(adminID.String()), f.provider, f.reviewer, log)
	return f
}

func (f *fixture) entries(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(f.logs.Bytes()))
	for sc.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApprove(t *testing.T) {
	f := newFixture()

	balance, err := f.svc.Approve(context.Background(), adminID, memberID, dec("25.00"))
	require.NoError(t, err)
	assert.Equal(t, "25.00", balance.StringFixed(2))

	logs := f.entries(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Admin operation", logs[0]["message"])
	assert.Equal(t, "admin-1", logs[0]["actor"])
	assert.Equal(t, "member-1", logs[0]["target"])
	assert.Equal(t, "approve", logs[0]["operation"])

	entries, err := f.store.Entries(context.Background(), memberID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, adminID, entries[0].Actor)
	assert.Equal(t, domain.EntryApprove, entries[0].Kind)
}

func TestApprove_InvalidAmount(t *testing.T) {
	f := newFixture()

	for _, amount := range []string{"0", "-1", "0.001"} {
		_, err := f.svc.Approve(context.Background(), adminID, memberID, dec(amount))
		assert.ErrorIs(t, err, errors.ErrInvalidAmount, amount)
	}
	assert.Len(t, f.entries(t), 3)
}

func TestDeduct_InsufficientFundsReportsBalance(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Approve(context.Background(), adminID, memberID, dec("10.00"))
	require.NoError(t, err)

	_, err = f.svc.Deduct(context.Background(), adminID, memberID, dec("25.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

	var insufficient *InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "10.00", insufficient.Balance.StringFixed(2))
	assert.Contains(t, err.Error(), "10.00")

	balance, err := f.store.GetBalance(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", balance.StringFixed(2))

	logs := f.entries(t)
	require.Len(t, logs, 2)
	assert.Equal(t, "Admin operation failed", logs[1]["message"])
	assert.Equal(t, "deduct", logs[1]["operation"])
}

func TestDeduct(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Approve(context.Background(), adminID, memberID, dec("10.00"))
	require.NoError(t, err)

	balance, err := f.svc.Deduct(context.Background(), adminID, memberID, dec("2.55"))
	require.NoError(t, err)
	assert.Equal(t, "7.45", balance.StringFixed(2))
}

func TestUnauthorizedActorChangesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, memberID, memberID, dec("100"))
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	_, err = f.svc.Deduct(ctx, memberID, "victim", dec("1"))
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	_, err = f.svc.ProviderBalance(ctx, memberID)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	_, err = f.svc.ManualReview(ctx, memberID, 0)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	_, err = f.svc.Resolve(ctx, memberID, uuid.New(), true, "")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	balance, err := f.store.GetBalance(ctx, memberID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	logs := f.entries(t)
	require.Len(t, logs, 5)
	for _, l := range logs {
		assert.Equal(t, "Unauthorized admin operation", l["message"])
		assert.Equal(t, "member-1", l["actor"])
	}
	f.provider.AssertNotCalled(t, "QueryBalance", mock.Anything)
	f.reviewer.AssertNotCalled(t, "ListManualReview", mock.Anything, mock.Anything)
}

func TestProviderBalance(t *testing.T) {
	f := newFixture()
	f.provider.On("QueryBalance", mock.Anything).Return(&domain.ProviderBalance{Amount: "100.84", Currency: "USD"}, nil).Once()

	bal, err := f.svc.ProviderBalance(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, "100.84", bal.Amount)

	f.provider.On("QueryBalance", mock.Anything).Return(nil, errors.ErrProvider).Once()
	_, err = f.svc.ProviderBalance(context.Background(), adminID)
	assert.ErrorIs(t, err, errors.ErrProvider)
}

func TestManualReviewAndResolve(t *testing.T) {
	f := newFixture()
	ref := uuid.New()
	pending := []*domain.Order{{Reference: ref, State: domain.OrderStateManualReview}}
	f.reviewer.On("ListManualReview", mock.Anything, 10).Return(pending, nil).Once()
	f.reviewer.On("Resolve", mock.Anything, adminID, ref, true, "").
		Return(&domain.Order{Reference: ref, State: domain.OrderStateRefunded}, nil).Once()

	orders, err := f.svc.ManualReview(context.Background(), adminID, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	resolved, err := f.svc.Resolve(context.Background(), adminID, ref, true, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateRefunded, resolved.State)
	f.reviewer.AssertExpectations(t)
}
