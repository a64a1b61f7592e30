package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
)

// TaskStore persists task submissions and their review state
type TaskStore interface {
	Create(ctx context.Context, submission *entities.TaskSubmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskSubmission, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*entities.TaskSubmission, error)
	ListByStatus(ctx context.Context, status entities.TaskStatus, limit, offset int) ([]*entities.TaskSubmission, error)
	Review(ctx context.Context, id uuid.UUID, status entities.TaskStatus) (bool, error)
}

// TaskService manages quest submissions. Approved submissions feed their
// bonus volume into the community classifier on the next status refresh.
type TaskService struct {
	taskRepo TaskStore
	logger   *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo TaskStore, log *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		logger:   log,
	}
}

// Submit records a pending task submission for review
func (s *TaskService) Submit(ctx context.Context, userID uuid.UUID, taskName string, bonusVolume decimal.Decimal) (*entities.TaskSubmission, error) {
	taskName = strings.TrimSpace(taskName)
	if taskName == "" {
		return nil, domainerrors.ValidationError("task_name", "task name is required")
	}
	if bonusVolume.IsNegative() {
		return nil, domainerrors.ValidationError("bonus_volume", "bonus volume cannot be negative")
	}

	submission := &entities.TaskSubmission{
		ID:          uuid.New(),
		UserID:      userID,
		TaskName:    taskName,
		BonusVolume: bonusVolume,
		Status:      entities.TaskStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.taskRepo.Create(ctx, submission); err != nil {
		return nil, err
	}

	s.logger.Info("task submitted",
		"task_id", submission.ID,
		"user_id", userID,
		"task_name", taskName,
		"bonus_volume", bonusVolume.String(),
	)
	return submission, nil
}

// Review settles a pending submission as approved or rejected. A
// submission is reviewed at most once.
func (s *TaskService) Review(ctx context.Context, id uuid.UUID, approve bool) (*entities.TaskSubmission, error) {
	status := entities.TaskStatusRejected
	if approve {
		status = entities.TaskStatusApproved
	}

	claimed, err := s.taskRepo.Review(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !claimed {
		submission, err := s.taskRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domainerrors.DomainError{
			Err:     domainerrors.ErrConflict,
			Code:    "ALREADY_REVIEWED",
			Message: "task submission already reviewed",
			Details: map[string]interface{}{
				"status": string(submission.Status),
			},
		}
	}

	s.logger.Info("task reviewed", "task_id", id, "status", string(status))
	return s.taskRepo.GetByID(ctx, id)
}

// ListUserTasks returns all of a user's submissions, newest first
func (s *TaskService) ListUserTasks(ctx context.Context, userID uuid.UUID) ([]*entities.TaskSubmission, error) {
	return s.taskRepo.GetByUser(ctx, userID)
}

// ListPending returns the review queue
func (s *TaskService) ListPending(ctx context.Context, limit, offset int) ([]*entities.TaskSubmission, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.taskRepo.ListByStatus(ctx, entities.TaskStatusPending, limit, offset)
}
