package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
)

// TaskRepository persists task submissions. Approved submissions feed their
// bonus volume into the community level classification.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a pending submission
func (r *TaskRepository) Create(ctx context.Context, submission *entities.TaskSubmission) error {
	query := `
		INSERT INTO task_submissions (id, user_id, task_name, bonus_volume, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.ExecContext(ctx, query,
		submission.ID, submission.UserID, submission.TaskName,
		submission.BonusVolume, submission.Status, submission.CreatedAt); err != nil {
		return fmt.Errorf("failed to create task submission: %w", err)
	}

	return nil
}

// GetByID retrieves a submission
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskSubmission, error) {
	query := `
		SELECT id, user_id, task_name, bonus_volume, status, reviewed_at, created_at
		FROM task_submissions
		WHERE id = $1
	`

	var submission entities.TaskSubmission
	err := r.db.GetContext(ctx, &submission, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("task submission")
		}
		return nil, fmt.Errorf("failed to get task submission: %w", err)
	}

	return &submission, nil
}

// GetByUser returns a user's submissions newest first
func (r *TaskRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*entities.TaskSubmission, error) {
	query := `
		SELECT id, user_id, task_name, bonus_volume, status, reviewed_at, created_at
		FROM task_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var submissions []*entities.TaskSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user task submissions: %w", err)
	}

	return submissions, nil
}

// ListByStatus returns submissions in a review state, oldest first
func (r *TaskRepository) ListByStatus(ctx context.Context, status entities.TaskStatus, limit, offset int) ([]*entities.TaskSubmission, error) {
	query := `
		SELECT id, user_id, task_name, bonus_volume, status, reviewed_at, created_at
		FROM task_submissions
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	var submissions []*entities.TaskSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, status, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list task submissions: %w", err)
	}

	return submissions, nil
}

// Review moves a pending submission to approved or rejected, returning
// false when the submission was already reviewed.
func (r *TaskRepository) Review(ctx context.Context, id uuid.UUID, status entities.TaskStatus) (bool, error) {
	query := `
		UPDATE task_submissions
		SET status = $2, reviewed_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now(), entities.TaskStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to review task submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// ApprovedBonusSum returns a user's total approved bonus volume
func (r *TaskRepository) ApprovedBonusSum(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(bonus_volume), 0)
		FROM task_submissions
		WHERE user_id = $1 AND status = $2
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, userID, entities.TaskStatusApproved); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum approved bonus volume: %w", err)
	}

	return total, nil
}
