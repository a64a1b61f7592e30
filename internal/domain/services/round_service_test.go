package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTxRunner executes the function directly without a real transaction
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(ext sqlx.ExtContext) error) error {
	return fn(nil)
}

type mockSnapshotUserRepo struct{ mock.Mock }

func (m *mockSnapshotUserRepo) ListWalletBound(ctx context.Context) ([]*entities.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

type mockPermitChecker struct{ mock.Mock }

func (m *mockPermitChecker) HasValidPermit(ctx context.Context, walletAddress string) (bool, error) {
	args := m.Called(ctx, walletAddress)
	return args.Bool(0), args.Error(1)
}

type mockRoundSettingsRepo struct{ mock.Mock }

func (m *mockRoundSettingsRepo) GetPlatformSettings(ctx context.Context) (*entities.PlatformSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformSettings), args.Error(1)
}

func (m *mockRoundSettingsRepo) GetTierBands(ctx context.Context) ([]entities.TierBand, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TierBand), args.Error(1)
}

func (m *mockRoundSettingsRepo) GetCommissionRates(ctx context.Context) (map[int]decimal.Decimal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]decimal.Decimal), args.Error(1)
}

func (m *mockRoundSettingsRepo) SetLastDistributionAt(ctx context.Context, ext sqlx.ExtContext, at time.Time) error {
	args := m.Called(ctx, ext, at)
	return args.Error(0)
}

type mockRoundStore struct{ mock.Mock }

func (m *mockRoundStore) CreateWithEntries(ctx context.Context, round *entities.SnapshotRound, entries []*entities.RoundEntry) error {
	args := m.Called(ctx, round, entries)
	return args.Error(0)
}

func (m *mockRoundStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.SnapshotRound, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SnapshotRound), args.Error(1)
}

func (m *mockRoundStore) List(ctx context.Context, limit, offset int) ([]*entities.SnapshotRound, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SnapshotRound), args.Error(1)
}

func (m *mockRoundStore) GetEntries(ctx context.Context, roundID uuid.UUID) ([]*entities.RoundEntry, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RoundEntry), args.Error(1)
}

func (m *mockRoundStore) MarkEntryCredited(ctx context.Context, ext sqlx.ExtContext, entryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, ext, entryID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRoundStore) SetDistributed(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ext, roundID, at)
	return args.Error(0)
}

func (m *mockRoundStore) SetCancelled(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) error {
	args := m.Called(ctx, ext, roundID)
	return args.Error(0)
}

func (m *mockRoundStore) DeleteUncreditedEntries(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ext, roundID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRoundStore) HasPendingRound(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type mockCommissionStore struct{ mock.Mock }

func (m *mockCommissionStore) Create(ctx context.Context, ext sqlx.ExtContext, commission *entities.ReferralCommission) error {
	args := m.Called(ctx, ext, commission)
	return args.Error(0)
}

func (m *mockCommissionStore) DeleteByRound(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ext, roundID)
	return args.Get(0).(int64), args.Error(1)
}

type mockLedgerCreditor struct{ mock.Mock }

func (m *mockLedgerCreditor) Credit(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal, kind entities.CreditKind) error {
	args := m.Called(ctx, ext, userID, asset, amount, kind)
	return args.Error(0)
}

type mockAncestorResolver struct{ mock.Mock }

func (m *mockAncestorResolver) AncestorChain(ctx context.Context, userID uuid.UUID, maxDepth int) ([]entities.Ancestor, error) {
	args := m.Called(ctx, userID, maxDepth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Ancestor), args.Error(1)
}

type mockFreshBalanceReader struct{ mock.Mock }

func (m *mockFreshBalanceReader) ReadFresh(ctx context.Context, address string) (decimal.Decimal, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type roundFixture struct {
	users       *mockSnapshotUserRepo
	permits     *mockPermitChecker
	settings    *mockRoundSettingsRepo
	rounds      *mockRoundStore
	commissions *mockCommissionStore
	ledger      *mockLedgerCreditor
	referrals   *mockAncestorResolver
	balances    *mockFreshBalanceReader
	svc         *RoundService
}

func newRoundFixture() *roundFixture {
	f := &roundFixture{
		users:       new(mockSnapshotUserRepo),
		permits:     new(mockPermitChecker),
		settings:    new(mockRoundSettingsRepo),
		rounds:      new(mockRoundStore),
		commissions: new(mockCommissionStore),
		ledger:      new(mockLedgerCreditor),
		referrals:   new(mockAncestorResolver),
		balances:    new(mockFreshBalanceReader),
	}
	f.svc = NewRoundService(
		f.users, f.permits, f.settings, f.rounds, f.commissions,
		f.ledger, f.referrals, f.balances, fakeTxRunner{}, logger.NewNop(),
	)
	return f
}

func TestStartRoundCooldownGate(t *testing.T) {
	f := newRoundFixture()

	last := time.Now().Add(-time.Hour)
	f.settings.On("GetPlatformSettings", mock.Anything).Return(&entities.PlatformSettings{
		DistributionIntervalSeconds: 7200,
		LastDistributionAt:          &last,
	}, nil)

	_, err := f.svc.StartRound(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrTooEarly)

	details := domainerrors.GetErrorDetails(err)
	require.NotNil(t, details)
	remaining, ok := details["remaining_seconds"].(int64)
	require.True(t, ok)
	assert.InDelta(t, 3600, float64(remaining), 5)
}

func TestStartRoundFirstRoundHasNoCooldown(t *testing.T) {
	f := newRoundFixture()

	f.settings.On("GetPlatformSettings", mock.Anything).Return(&entities.PlatformSettings{
		DistributionIntervalSeconds: 7200,
	}, nil)
	f.rounds.On("HasPendingRound", mock.Anything).Return(false, nil)
	f.settings.On("GetTierBands", mock.Anything).Return(testTierBands(), nil)
	f.users.On("ListWalletBound", mock.Anything).Return(nil, nil)
	f.rounds.On("CreateWithEntries", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	preview, err := f.svc.StartRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, preview.Round.UserCount)
}

func TestStartRoundSnapshotsEligibleUsers(t *testing.T) {
	f := newRoundFixture()

	eligible := &entities.User{ID: uuid.New(), WalletAddress: strPtr("0xaaa")}
	noPermit := &entities.User{ID: uuid.New(), WalletAddress: strPtr("0xbbb")}
	belowTiers := &entities.User{ID: uuid.New(), WalletAddress: strPtr("0xccc")}

	f.settings.On("GetPlatformSettings", mock.Anything).Return(&entities.PlatformSettings{DistributionIntervalSeconds: 60}, nil)
	f.rounds.On("HasPendingRound", mock.Anything).Return(false, nil)
	f.settings.On("GetTierBands", mock.Anything).Return(testTierBands(), nil)
	f.users.On("ListWalletBound", mock.Anything).Return([]*entities.User{eligible, noPermit, belowTiers}, nil)

	f.permits.On("HasValidPermit", mock.Anything, "0xaaa").Return(true, nil)
	f.permits.On("HasValidPermit", mock.Anything, "0xbbb").Return(false, nil)
	f.permits.On("HasValidPermit", mock.Anything, "0xccc").Return(true, nil)

	f.balances.On("ReadFresh", mock.Anything, "0xaaa").Return(dec("1000"), nil)
	f.balances.On("ReadFresh", mock.Anything, "0xccc").Return(dec("50"), nil)

	f.rounds.On("CreateWithEntries", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	preview, err := f.svc.StartRound(context.Background())
	require.NoError(t, err)

	require.Len(t, preview.Entries, 1)
	assert.Equal(t, 2, preview.Skipped)
	entry := preview.Entries[0]
	assert.Equal(t, eligible.ID, entry.UserID)
	assert.Equal(t, "silver", entry.TierName)
	assert.True(t, dec("12").Equal(entry.Profit), "profit = 1000 * 0.012")
	assert.True(t, dec("12").Equal(preview.Round.TotalAmount))
	assert.False(t, entry.Credited)
}

func TestStartRoundKeepsEntryOrderAcrossParallelReads(t *testing.T) {
	f := newRoundFixture()

	users := make([]*entities.User, 0, 20)
	for i := 0; i < 20; i++ {
		addr := fmt.Sprintf("0x%03d", i)
		users = append(users, &entities.User{ID: uuid.New(), WalletAddress: strPtr(addr)})
		f.permits.On("HasValidPermit", mock.Anything, addr).Return(true, nil)
		f.balances.On("ReadFresh", mock.Anything, addr).Return(dec("1000"), nil)
	}

	f.settings.On("GetPlatformSettings", mock.Anything).Return(&entities.PlatformSettings{DistributionIntervalSeconds: 60}, nil)
	f.rounds.On("HasPendingRound", mock.Anything).Return(false, nil)
	f.settings.On("GetTierBands", mock.Anything).Return(testTierBands(), nil)
	f.users.On("ListWalletBound", mock.Anything).Return(users, nil)
	f.rounds.On("CreateWithEntries", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	preview, err := f.svc.StartRound(context.Background())
	require.NoError(t, err)

	require.Len(t, preview.Entries, len(users))
	for i, entry := range preview.Entries {
		assert.Equal(t, users[i].ID, entry.UserID)
	}
	assert.True(t, dec("240").Equal(preview.Round.TotalAmount))
}

func TestStartRoundRejectsSecondPendingRound(t *testing.T) {
	f := newRoundFixture()

	f.settings.On("GetPlatformSettings", mock.Anything).Return(&entities.PlatformSettings{DistributionIntervalSeconds: 60}, nil)
	f.rounds.On("HasPendingRound", mock.Anything).Return(true, nil)

	_, err := f.svc.StartRound(context.Background())
	assert.True(t, domainerrors.IsAlreadyExists(err))
}

func TestDistributeRoundCreditsAndCascades(t *testing.T) {
	f := newRoundFixture()

	roundID := uuid.New()
	sourceUser := uuid.New()
	parent := uuid.New()
	grandparent := uuid.New()

	entry := &entities.RoundEntry{
		ID:      uuid.New(),
		RoundID: roundID,
		UserID:  sourceUser,
		Profit:  dec("100"),
	}

	f.rounds.On("GetByID", mock.Anything, roundID).Return(&entities.SnapshotRound{ID: roundID, Status: entities.RoundStatusPending}, nil)
	f.settings.On("GetCommissionRates", mock.Anything).Return(map[int]decimal.Decimal{
		1: dec("0.05"),
		2: dec("0.03"),
	}, nil)
	f.rounds.On("GetEntries", mock.Anything, roundID).Return([]*entities.RoundEntry{entry}, nil)
	f.rounds.On("MarkEntryCredited", mock.Anything, mock.Anything, entry.ID).Return(true, nil)

	f.ledger.On("Credit", mock.Anything, mock.Anything, sourceUser, entities.AssetUSDC, dec("100"), entities.CreditKindEarning).Return(nil)

	f.referrals.On("AncestorChain", mock.Anything, sourceUser, entities.MaxCommissionDepth).Return([]entities.Ancestor{
		{UserID: parent, Depth: 1},
		{UserID: grandparent, Depth: 2},
	}, nil)

	// Both ancestors get their rate of the full source profit.
	f.commissions.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(c *entities.ReferralCommission) bool {
		return c.UserID == parent && c.Amount.Equal(dec("5")) && c.SourceProfit.Equal(dec("100"))
	})).Return(nil)
	f.commissions.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(c *entities.ReferralCommission) bool {
		return c.UserID == grandparent && c.Amount.Equal(dec("3"))
	})).Return(nil)
	f.ledger.On("Credit", mock.Anything, mock.Anything, parent, entities.AssetUSDC, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(dec("5"))
	}), entities.CreditKindCommission).Return(nil)
	f.ledger.On("Credit", mock.Anything, mock.Anything, grandparent, entities.AssetUSDC, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(dec("3"))
	}), entities.CreditKindCommission).Return(nil)

	f.rounds.On("SetDistributed", mock.Anything, mock.Anything, roundID, mock.Anything).Return(nil)
	f.settings.On("SetLastDistributionAt", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.DistributeRound(context.Background(), roundID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Credited)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, result.CommissionRows)
	assert.True(t, dec("100").Equal(result.TotalProfit))
	assert.True(t, dec("8").Equal(result.TotalCommission))
	f.ledger.AssertExpectations(t)
	f.commissions.AssertExpectations(t)
}

func TestDistributeRoundSkipsCreditedEntries(t *testing.T) {
	f := newRoundFixture()

	roundID := uuid.New()
	credited := &entities.RoundEntry{ID: uuid.New(), RoundID: roundID, UserID: uuid.New(), Profit: dec("10"), Credited: true}
	raced := &entities.RoundEntry{ID: uuid.New(), RoundID: roundID, UserID: uuid.New(), Profit: dec("20")}

	f.rounds.On("GetByID", mock.Anything, roundID).Return(&entities.SnapshotRound{ID: roundID, Status: entities.RoundStatusPending}, nil)
	f.settings.On("GetCommissionRates", mock.Anything).Return(map[int]decimal.Decimal{}, nil)
	f.rounds.On("GetEntries", mock.Anything, roundID).Return([]*entities.RoundEntry{credited, raced}, nil)

	// Another worker wins the conditional update for the second entry.
	f.rounds.On("MarkEntryCredited", mock.Anything, mock.Anything, raced.ID).Return(false, nil)

	f.rounds.On("SetDistributed", mock.Anything, mock.Anything, roundID, mock.Anything).Return(nil)
	f.settings.On("SetLastDistributionAt", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.DistributeRound(context.Background(), roundID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Credited)
	assert.Equal(t, 2, result.AlreadyCredited)
	f.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDistributeRoundRejectsTerminalRound(t *testing.T) {
	f := newRoundFixture()

	roundID := uuid.New()
	f.rounds.On("GetByID", mock.Anything, roundID).Return(&entities.SnapshotRound{ID: roundID, Status: entities.RoundStatusDistributed}, nil)

	_, err := f.svc.DistributeRound(context.Background(), roundID)
	assert.ErrorIs(t, err, domainerrors.ErrRoundAlreadyProcessed)
}

func TestDistributeRoundLeavesRoundPendingOnFailure(t *testing.T) {
	f := newRoundFixture()

	roundID := uuid.New()
	entry := &entities.RoundEntry{ID: uuid.New(), RoundID: roundID, UserID: uuid.New(), Profit: dec("10")}

	f.rounds.On("GetByID", mock.Anything, roundID).Return(&entities.SnapshotRound{ID: roundID, Status: entities.RoundStatusPending}, nil)
	f.settings.On("GetCommissionRates", mock.Anything).Return(map[int]decimal.Decimal{}, nil)
	f.rounds.On("GetEntries", mock.Anything, roundID).Return([]*entities.RoundEntry{entry}, nil)
	f.rounds.On("MarkEntryCredited", mock.Anything, mock.Anything, entry.ID).Return(false, assert.AnError)

	result, err := f.svc.DistributeRound(context.Background(), roundID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	f.rounds.AssertNotCalled(t, "SetDistributed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.settings.AssertNotCalled(t, "SetLastDistributionAt", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelRoundRejectsPartiallyDistributed(t *testing.T) {
	f := newRoundFixture()

	roundID := uuid.New()
	f.rounds.On("GetByID", mock.Anything, roundID).Return(&entities.SnapshotRound{ID: roundID, Status: entities.RoundStatusPending}, nil)
	f.rounds.On("GetEntries", mock.Anything, roundID).Return([]*entities.RoundEntry{
		{ID: uuid.New(), Credited: true},
	}, nil)

	err := f.svc.CancelRound(context.Background(), roundID)
	assert.ErrorIs(t, err, domainerrors.ErrRoundAlreadyProcessed)
	f.rounds.AssertNotCalled(t, "SetCancelled", mock.Anything, mock.Anything, mock.Anything)
	f.rounds.AssertNotCalled(t, "DeleteUncreditedEntries", mock.Anything, mock.Anything, mock.Anything)
	f.commissions.AssertNotCalled(t, "DeleteByRound", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelRoundRemovesUnpaidRows(t *testing.T) {
	f := newRoundFixture()

	roundID := uuid.New()
	f.rounds.On("GetByID", mock.Anything, roundID).Return(&entities.SnapshotRound{ID: roundID, Status: entities.RoundStatusPending}, nil)
	f.rounds.On("GetEntries", mock.Anything, roundID).Return([]*entities.RoundEntry{{ID: uuid.New()}, {ID: uuid.New()}}, nil)
	f.rounds.On("SetCancelled", mock.Anything, mock.Anything, roundID).Return(nil)
	f.rounds.On("DeleteUncreditedEntries", mock.Anything, mock.Anything, roundID).Return(int64(2), nil)
	f.commissions.On("DeleteByRound", mock.Anything, mock.Anything, roundID).Return(int64(12), nil)

	require.NoError(t, f.svc.CancelRound(context.Background(), roundID))
	f.rounds.AssertExpectations(t)
	f.commissions.AssertExpectations(t)
}
