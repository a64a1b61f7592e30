package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/adapters/chain"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWithdrawalStore struct{ mock.Mock }

func (m *mockWithdrawalStore) Create(ctx context.Context, ext sqlx.ExtContext, withdrawal *entities.WithdrawalRequest) error {
	args := m.Called(ctx, ext, withdrawal)
	return args.Error(0)
}

func (m *mockWithdrawalStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalStore) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.WithdrawalRequest, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalStore) ListByStatus(ctx context.Context, status entities.WithdrawalStatus, limit, offset int) ([]*entities.WithdrawalRequest, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalStore) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockWithdrawalStore) MarkCompleted(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, txHash string) error {
	args := m.Called(ctx, ext, id, txHash)
	return args.Error(0)
}

func (m *mockWithdrawalStore) SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error {
	args := m.Called(ctx, id, txHash)
	return args.Error(0)
}

func (m *mockWithdrawalStore) MarkFailedAndRefunded(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, errorMessage string) (bool, error) {
	args := m.Called(ctx, ext, id, errorMessage)
	return args.Bool(0), args.Error(1)
}

type mockWithdrawalLedger struct{ mock.Mock }

func (m *mockWithdrawalLedger) Debit(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error {
	args := m.Called(ctx, ext, userID, asset, amount)
	return args.Error(0)
}

func (m *mockWithdrawalLedger) Refund(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error {
	args := m.Called(ctx, ext, userID, asset, amount)
	return args.Error(0)
}

func (m *mockWithdrawalLedger) RecordWithdrawn(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error {
	args := m.Called(ctx, ext, userID, asset, amount)
	return args.Error(0)
}

type mockWithdrawalSettings struct{ mock.Mock }

func (m *mockWithdrawalSettings) GetWithdrawalMinimum(ctx context.Context, asset entities.AssetType) (decimal.Decimal, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockWithdrawalUserRepo struct{ mock.Mock }

func (m *mockWithdrawalUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

type mockTransferor struct{ mock.Mock }

func (m *mockTransferor) TransferToken(ctx context.Context, destination string, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, destination, amount)
	return args.String(0), args.Error(1)
}

type withdrawalFixture struct {
	store      *mockWithdrawalStore
	ledger     *mockWithdrawalLedger
	settings   *mockWithdrawalSettings
	users      *mockWithdrawalUserRepo
	transferor *mockTransferor
	svc        *WithdrawalService
}

func newWithdrawalFixture() *withdrawalFixture {
	f := &withdrawalFixture{
		store:      new(mockWithdrawalStore),
		ledger:     new(mockWithdrawalLedger),
		settings:   new(mockWithdrawalSettings),
		users:      new(mockWithdrawalUserRepo),
		transferor: new(mockTransferor),
	}
	f.svc = NewWithdrawalService(f.store, f.ledger, f.settings, f.users, f.transferor, fakeTxRunner{}, logger.NewNop())
	return f
}

func walletUser(id uuid.UUID) *entities.User {
	return &entities.User{ID: id, WalletAddress: strPtr("0xdest")}
}

func TestRequestWithdrawalHappyPath(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(walletUser(userID), nil)
	f.settings.On("GetWithdrawalMinimum", mock.Anything, entities.AssetUSDC).Return(dec("10"), nil)
	f.ledger.On("Debit", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkProcessing", mock.Anything, mock.Anything).Return(true, nil)
	f.transferor.On("TransferToken", mock.Anything, "0xdest", dec("50")).Return("0xhash", nil)
	f.store.On("MarkCompleted", mock.Anything, mock.Anything, mock.Anything, "0xhash").Return(nil)
	f.ledger.On("RecordWithdrawn", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)

	resp, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, entities.WithdrawalStatusCompleted, resp.Status)
	require.NotNil(t, resp.TxHash)
	assert.Equal(t, "0xhash", *resp.TxHash)
	f.ledger.AssertExpectations(t)
}

func TestRequestWithdrawalRequiresWallet(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID}, nil)

	_, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
	})
	assert.ErrorIs(t, err, domainerrors.ErrNoWalletBound)
	f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(walletUser(userID), nil)
	f.settings.On("GetWithdrawalMinimum", mock.Anything, entities.AssetUSDC).Return(dec("100"), nil)

	_, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("99.99"),
	})
	assert.ErrorIs(t, err, domainerrors.ErrBelowMinimum)
}

func TestRequestWithdrawalInsufficientBalanceLeavesNoTrace(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(walletUser(userID), nil)
	f.settings.On("GetWithdrawalMinimum", mock.Anything, entities.AssetUSDC).Return(decimal.Zero, nil)
	f.ledger.On("Debit", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).
		Return(domainerrors.InsufficientBalanceError(dec("10"), dec("50")))

	_, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
	})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientBalance)
	f.store.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything)
	f.transferor.AssertNotCalled(t, "TransferToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestWithdrawalFailureRefundsOnce(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(walletUser(userID), nil)
	f.settings.On("GetWithdrawalMinimum", mock.Anything, entities.AssetUSDC).Return(decimal.Zero, nil)
	f.ledger.On("Debit", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkProcessing", mock.Anything, mock.Anything).Return(true, nil)
	f.transferor.On("TransferToken", mock.Anything, "0xdest", dec("50")).Return("", chain.ErrTransferReverted)
	f.store.On("MarkFailedAndRefunded", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.ledger.On("Refund", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)

	resp, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, entities.WithdrawalStatusFailed, resp.Status)
	f.ledger.AssertNumberOfCalls(t, "Refund", 1)
}

func TestRequestWithdrawalRefundSkippedWhenAlreadyRefunded(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(walletUser(userID), nil)
	f.settings.On("GetWithdrawalMinimum", mock.Anything, entities.AssetUSDC).Return(decimal.Zero, nil)
	f.ledger.On("Debit", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkProcessing", mock.Anything, mock.Anything).Return(true, nil)
	f.transferor.On("TransferToken", mock.Anything, "0xdest", dec("50")).Return("", chain.ErrTransferReverted)

	// Another worker already owns the refund.
	f.store.On("MarkFailedAndRefunded", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	resp, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, entities.WithdrawalStatusFailed, resp.Status)
	f.ledger.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestWithdrawalIndeterminateStaysProcessing(t *testing.T) {
	f := newWithdrawalFixture()
	userID := uuid.New()

	f.users.On("GetByID", mock.Anything, userID).Return(walletUser(userID), nil)
	f.settings.On("GetWithdrawalMinimum", mock.Anything, entities.AssetUSDC).Return(decimal.Zero, nil)
	f.ledger.On("Debit", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkProcessing", mock.Anything, mock.Anything).Return(true, nil)
	f.transferor.On("TransferToken", mock.Anything, "0xdest", dec("50")).Return("0xmaybe", chain.ErrTransferIndeterminate)
	f.store.On("SetTxHash", mock.Anything, mock.Anything, "0xmaybe").Return(nil)

	resp, err := f.svc.Request(context.Background(), &entities.RequestWithdrawalInput{
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, entities.WithdrawalStatusProcessing, resp.Status)
	f.ledger.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "MarkFailedAndRefunded", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveConfirmedCompletes(t *testing.T) {
	f := newWithdrawalFixture()
	id := uuid.New()
	userID := uuid.New()
	hash := "0xmaybe"

	stuck := &entities.WithdrawalRequest{
		ID:        id,
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
		Status:    entities.WithdrawalStatusProcessing,
		TxHash:    &hash,
	}
	resolved := &entities.WithdrawalRequest{ID: id, Status: entities.WithdrawalStatusCompleted}

	f.store.On("GetByID", mock.Anything, id).Return(stuck, nil).Once()
	f.store.On("MarkCompleted", mock.Anything, mock.Anything, id, hash).Return(nil)
	f.ledger.On("RecordWithdrawn", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)
	f.store.On("GetByID", mock.Anything, id).Return(resolved, nil).Once()

	got, err := f.svc.Resolve(context.Background(), id, true, "")
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusCompleted, got.Status)
}

func TestResolveUnconfirmedRefunds(t *testing.T) {
	f := newWithdrawalFixture()
	id := uuid.New()
	userID := uuid.New()

	stuck := &entities.WithdrawalRequest{
		ID:        id,
		UserID:    userID,
		AssetType: entities.AssetUSDC,
		Amount:    dec("50"),
		Status:    entities.WithdrawalStatusProcessing,
	}
	resolved := &entities.WithdrawalRequest{ID: id, Status: entities.WithdrawalStatusFailed, Refunded: true}

	f.store.On("GetByID", mock.Anything, id).Return(stuck, nil).Once()
	f.store.On("MarkFailedAndRefunded", mock.Anything, mock.Anything, id, mock.Anything).Return(true, nil)
	f.ledger.On("Refund", mock.Anything, mock.Anything, userID, entities.AssetUSDC, dec("50")).Return(nil)
	f.store.On("GetByID", mock.Anything, id).Return(resolved, nil).Once()

	got, err := f.svc.Resolve(context.Background(), id, false, "")
	require.NoError(t, err)
	assert.True(t, got.Refunded)
}

func TestResolveRejectsNonProcessing(t *testing.T) {
	f := newWithdrawalFixture()
	id := uuid.New()

	f.store.On("GetByID", mock.Anything, id).Return(&entities.WithdrawalRequest{
		ID:     id,
		Status: entities.WithdrawalStatusCompleted,
	}, nil)

	_, err := f.svc.Resolve(context.Background(), id, false, "")
	assert.True(t, domainerrors.IsInvalidInput(err))
}

func TestGetWithdrawalHidesOtherUsers(t *testing.T) {
	f := newWithdrawalFixture()
	id := uuid.New()

	f.store.On("GetByID", mock.Anything, id).Return(&entities.WithdrawalRequest{
		ID:     id,
		UserID: uuid.New(),
	}, nil)

	_, err := f.svc.GetWithdrawal(context.Background(), uuid.New(), id)
	assert.True(t, domainerrors.IsNotFound(err))
}
