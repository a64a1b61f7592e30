package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
)

type mockTaskStore struct {
	mock.Mock
}

func (m *mockTaskStore) Create(ctx context.Context, submission *entities.TaskSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TaskSubmission), args.Error(1)
}

func (m *mockTaskStore) GetByUser(ctx context.Context, userID uuid.UUID) ([]*entities.TaskSubmission, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TaskSubmission), args.Error(1)
}

func (m *mockTaskStore) ListByStatus(ctx context.Context, status entities.TaskStatus, limit, offset int) ([]*entities.TaskSubmission, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TaskSubmission), args.Error(1)
}

func (m *mockTaskStore) Review(ctx context.Context, id uuid.UUID, status entities.TaskStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func TestTaskSubmitCreatesPending(t *testing.T) {
	store := new(mockTaskStore)
	svc := NewTaskService(store, logger.NewNop())

	store.On("Create", mock.Anything, mock.MatchedBy(func(s *entities.TaskSubmission) bool {
		return s.TaskName == "invite ten friends" &&
			s.Status == entities.TaskStatusPending &&
			s.BonusVolume.Equal(decimal.NewFromInt(250))
	})).Return(nil)

	submission, err := svc.Submit(context.Background(), uuid.New(), "  invite ten friends  ", decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusPending, submission.Status)
	store.AssertExpectations(t)
}

func TestTaskSubmitRejectsNegativeBonus(t *testing.T) {
	store := new(mockTaskStore)
	svc := NewTaskService(store, logger.NewNop())

	_, err := svc.Submit(context.Background(), uuid.New(), "task", decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.True(t, domainerrors.IsInvalidInput(err))
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTaskReviewApprovesOnce(t *testing.T) {
	store := new(mockTaskStore)
	svc := NewTaskService(store, logger.NewNop())

	id := uuid.New()
	reviewed := &entities.TaskSubmission{ID: id, Status: entities.TaskStatusApproved}
	store.On("Review", mock.Anything, id, entities.TaskStatusApproved).Return(true, nil)
	store.On("GetByID", mock.Anything, id).Return(reviewed, nil)

	submission, err := svc.Review(context.Background(), id, true)
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusApproved, submission.Status)
}

func TestTaskReviewSecondAttemptConflicts(t *testing.T) {
	store := new(mockTaskStore)
	svc := NewTaskService(store, logger.NewNop())

	id := uuid.New()
	already := &entities.TaskSubmission{ID: id, Status: entities.TaskStatusApproved}
	store.On("Review", mock.Anything, id, entities.TaskStatusRejected).Return(false, nil)
	store.On("GetByID", mock.Anything, id).Return(already, nil)

	_, err := svc.Review(context.Background(), id, false)
	require.Error(t, err)
	assert.Equal(t, "ALREADY_REVIEWED", domainerrors.GetErrorCode(err))
}
