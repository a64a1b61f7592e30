package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
)

type mockRoundService struct {
	mock.Mock
}

func (m *mockRoundService) StartRound(ctx context.Context) (*entities.RoundPreview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RoundPreview), args.Error(1)
}

func (m *mockRoundService) DistributeRound(ctx context.Context, roundID uuid.UUID) (*entities.DistributionResult, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DistributionResult), args.Error(1)
}

func (m *mockRoundService) CancelRound(ctx context.Context, roundID uuid.UUID) error {
	args := m.Called(ctx, roundID)
	return args.Error(0)
}

func (m *mockRoundService) GetRound(ctx context.Context, roundID uuid.UUID) (*entities.SnapshotRound, []*entities.RoundEntry, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*entities.SnapshotRound), args.Get(1).([]*entities.RoundEntry), args.Error(2)
}

func (m *mockRoundService) ListRounds(ctx context.Context, limit, offset int) ([]*entities.SnapshotRound, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SnapshotRound), args.Error(1)
}

func setupRoundRouter(svc RoundServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRoundHandlers(svc, logger.NewNop())

	r := gin.New()
	r.POST("/admin/rounds", h.StartRound)
	r.POST("/admin/rounds/:roundId/distribute", h.DistributeRound)
	r.POST("/admin/rounds/:roundId/cancel", h.CancelRound)
	r.GET("/admin/rounds/:roundId", h.GetRound)
	r.GET("/admin/rounds", h.ListRounds)
	return r
}

func TestStartRoundReturnsPreview(t *testing.T) {
	svc := new(mockRoundService)
	round := &entities.SnapshotRound{
		ID:          uuid.New(),
		Status:      entities.RoundStatusPending,
		UserCount:   2,
		TotalAmount: decimal.RequireFromString("1500"),
	}
	svc.On("StartRound", mock.Anything).Return(&entities.RoundPreview{
		Round:   round,
		Entries: []*entities.RoundEntry{},
		Skipped: 1,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rounds", nil)
	setupRoundRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var body entities.RoundPreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, round.ID, body.Round.ID)
	assert.Equal(t, 1, body.Skipped)
	svc.AssertExpectations(t)
}

func TestStartRoundTooEarlyConflicts(t *testing.T) {
	svc := new(mockRoundService)
	svc.On("StartRound", mock.Anything).Return(nil, domainerrors.TooEarlyError(3600))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rounds", nil)
	setupRoundRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var body entities.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TOO_EARLY", body.Code)
	assert.EqualValues(t, 3600, body.Details["remaining_seconds"])
}

func TestDistributeRoundSummarizesResult(t *testing.T) {
	svc := new(mockRoundService)
	roundID := uuid.New()
	svc.On("DistributeRound", mock.Anything, roundID).Return(&entities.DistributionResult{
		RoundID:     roundID,
		Credited:    3,
		TotalProfit: decimal.RequireFromString("42.5"),
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rounds/"+roundID.String()+"/distribute", nil)
	setupRoundRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body entities.DistributionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, roundID, body.RoundID)
	assert.Equal(t, 3, body.Credited)
	svc.AssertExpectations(t)
}

func TestDistributeRoundRejectsBadID(t *testing.T) {
	svc := new(mockRoundService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rounds/not-a-uuid/distribute", nil)
	setupRoundRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "DistributeRound")
}

func TestGetRoundNotFound(t *testing.T) {
	svc := new(mockRoundService)
	roundID := uuid.New()
	svc.On("GetRound", mock.Anything, roundID).Return(nil, nil, domainerrors.NotFoundError("round"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/rounds/"+roundID.String(), nil)
	setupRoundRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRoundsPassesPagination(t *testing.T) {
	svc := new(mockRoundService)
	svc.On("ListRounds", mock.Anything, 5, 10).Return([]*entities.SnapshotRound{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/rounds?limit=5&offset=10", nil)
	setupRoundRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
