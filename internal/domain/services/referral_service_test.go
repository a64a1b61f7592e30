package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReferralGraphRepo struct {
	mock.Mock
}

func (m *mockReferralGraphRepo) GetReferrerID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uuid.UUID), args.Error(1)
}

func (m *mockReferralGraphRepo) GetChildren(ctx context.Context, referrerIDs []uuid.UUID) ([]*entities.User, error) {
	args := m.Called(ctx, referrerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

type mockBalanceReader struct {
	mock.Mock
}

func (m *mockBalanceReader) GetWalletBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func strPtr(s string) *string { return &s }

func TestAncestorChainStopsAtRoot(t *testing.T) {
	repo := new(mockReferralGraphRepo)
	svc := NewReferralService(repo, nil, logger.NewNop())

	user := uuid.New()
	parent := uuid.New()
	grandparent := uuid.New()

	repo.On("GetReferrerID", mock.Anything, user).Return(&parent, nil)
	repo.On("GetReferrerID", mock.Anything, parent).Return(&grandparent, nil)
	repo.On("GetReferrerID", mock.Anything, grandparent).Return(nil, nil)

	chain, err := svc.AncestorChain(context.Background(), user, entities.MaxCommissionDepth)
	require.NoError(t, err)

	require.Len(t, chain, 2)
	assert.Equal(t, entities.Ancestor{UserID: parent, Depth: 1}, chain[0])
	assert.Equal(t, entities.Ancestor{UserID: grandparent, Depth: 2}, chain[1])
}

func TestAncestorChainBoundedByMaxDepth(t *testing.T) {
	repo := new(mockReferralGraphRepo)
	svc := NewReferralService(repo, nil, logger.NewNop())

	// Chain longer than the cap: user <- a1 <- a2 <- ... <- a8
	ids := make([]uuid.UUID, 9)
	for i := range ids {
		ids[i] = uuid.New()
	}
	for i := 0; i < 8; i++ {
		repo.On("GetReferrerID", mock.Anything, ids[i]).Return(&ids[i+1], nil)
	}

	chain, err := svc.AncestorChain(context.Background(), ids[0], entities.MaxCommissionDepth)
	require.NoError(t, err)

	require.Len(t, chain, entities.MaxCommissionDepth)
	assert.Equal(t, 1, chain[0].Depth)
	assert.Equal(t, entities.MaxCommissionDepth, chain[len(chain)-1].Depth)
}

func TestAncestorChainBreaksCycles(t *testing.T) {
	repo := new(mockReferralGraphRepo)
	svc := NewReferralService(repo, nil, logger.NewNop())

	a := uuid.New()
	b := uuid.New()

	repo.On("GetReferrerID", mock.Anything, a).Return(&b, nil)
	repo.On("GetReferrerID", mock.Anything, b).Return(&a, nil)

	chain, err := svc.AncestorChain(context.Background(), a, entities.MaxCommissionDepth)
	require.NoError(t, err)

	require.Len(t, chain, 1)
	assert.Equal(t, b, chain[0].UserID)
}

func TestDescendantsBreadthFirst(t *testing.T) {
	repo := new(mockReferralGraphRepo)
	svc := NewReferralService(repo, nil, logger.NewNop())

	root := uuid.New()
	child1 := uuid.New()
	child2 := uuid.New()
	grandchild := uuid.New()

	repo.On("GetChildren", mock.Anything, []uuid.UUID{root}).Return([]*entities.User{
		{ID: child1, WalletAddress: strPtr("0xaaa")},
		{ID: child2},
	}, nil)
	repo.On("GetChildren", mock.Anything, []uuid.UUID{child1, child2}).Return([]*entities.User{
		{ID: grandchild, WalletAddress: strPtr("0xbbb")},
	}, nil)
	repo.On("GetChildren", mock.Anything, []uuid.UUID{grandchild}).Return(nil, nil)

	descendants, err := svc.Descendants(context.Background(), root, entities.TeamVolumeDepth)
	require.NoError(t, err)

	require.Len(t, descendants, 3)
	assert.Equal(t, 1, descendants[0].Depth)
	assert.Equal(t, 1, descendants[1].Depth)
	assert.Equal(t, 2, descendants[2].Depth)
	assert.Equal(t, grandchild, descendants[2].UserID)
}

func TestTeamVolumeSkipsWalletlessAndUnreadable(t *testing.T) {
	repo := new(mockReferralGraphRepo)
	balances := new(mockBalanceReader)
	svc := NewReferralService(repo, balances, logger.NewNop())

	root := uuid.New()
	withWallet := uuid.New()
	noWallet := uuid.New()
	broken := uuid.New()

	repo.On("GetChildren", mock.Anything, []uuid.UUID{root}).Return([]*entities.User{
		{ID: withWallet, WalletAddress: strPtr("0xaaa")},
		{ID: noWallet},
		{ID: broken, WalletAddress: strPtr("0xbad")},
	}, nil)
	repo.On("GetChildren", mock.Anything, mock.Anything).Return(nil, nil)

	balances.On("GetWalletBalance", mock.Anything, "0xaaa").Return(dec("150.5"), nil)
	balances.On("GetWalletBalance", mock.Anything, "0xbad").Return(decimal.Zero, assert.AnError)

	total, err := svc.TeamVolume(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, dec("150.5").Equal(total))
}
