package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/adapters/chain"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
)

// WithdrawalStore persists withdrawal requests
type WithdrawalStore interface {
	Create(ctx context.Context, ext sqlx.ExtContext, withdrawal *entities.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.WithdrawalRequest, error)
	GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status entities.WithdrawalStatus, limit, offset int) ([]*entities.WithdrawalRequest, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, txHash string) error
	SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error
	MarkFailedAndRefunded(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, errorMessage string) (bool, error)
}

// WithdrawalLedger is the balance surface for withdrawals
type WithdrawalLedger interface {
	Debit(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error
	Refund(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error
	RecordWithdrawn(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error
}

// WithdrawalSettings reads the per-asset withdrawal floor
type WithdrawalSettings interface {
	GetWithdrawalMinimum(ctx context.Context, asset entities.AssetType) (decimal.Decimal, error)
}

// WithdrawalUserRepository resolves the destination wallet
type WithdrawalUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
}

// TokenTransferor moves tokens from the relayer to a destination wallet
type TokenTransferor interface {
	TransferToken(ctx context.Context, destination string, amount decimal.Decimal) (string, error)
}

// WithdrawalService runs the withdrawal state machine. The available
// balance is debited optimistically at request time; a failed transfer
// refunds that debit exactly once, and an indeterminate transfer parks the
// request in processing for operator reconciliation instead of guessing.
type WithdrawalService struct {
	withdrawalRepo WithdrawalStore
	ledger         WithdrawalLedger
	settingsRepo   WithdrawalSettings
	userRepo       WithdrawalUserRepository
	transferor     TokenTransferor
	tx             TxRunner
	logger         *logger.Logger
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	withdrawalRepo WithdrawalStore,
	ledger WithdrawalLedger,
	settingsRepo WithdrawalSettings,
	userRepo WithdrawalUserRepository,
	transferor TokenTransferor,
	tx TxRunner,
	log *logger.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawalRepo: withdrawalRepo,
		ledger:         ledger,
		settingsRepo:   settingsRepo,
		userRepo:       userRepo,
		transferor:     transferor,
		tx:             tx,
		logger:         log,
	}
}

// Request validates, debits and executes a withdrawal. The debit and the
// pending row land in one transaction, so an insufficient balance leaves no
// trace; the on-chain transfer runs after that transaction commits.
func (s *WithdrawalService) Request(ctx context.Context, input *entities.RequestWithdrawalInput) (*entities.RequestWithdrawalResponse, error) {
	if !input.AssetType.IsValid() {
		return nil, domainerrors.ValidationError("asset_type", "unsupported asset")
	}
	if !input.Amount.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "amount must be positive")
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !user.HasWallet() {
		return nil, domainerrors.NoWalletBoundError()
	}

	minimum, err := s.settingsRepo.GetWithdrawalMinimum(ctx, input.AssetType)
	if err != nil {
		return nil, err
	}
	if input.Amount.LessThan(minimum) {
		return nil, domainerrors.BelowMinimumError(minimum, input.Amount)
	}

	now := time.Now()
	withdrawal := &entities.WithdrawalRequest{
		ID:                 uuid.New(),
		UserID:             input.UserID,
		AssetType:          input.AssetType,
		Amount:             input.Amount,
		DestinationAddress: *user.WalletAddress,
		Status:             entities.WithdrawalStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
		if err := s.ledger.Debit(ctx, ext, input.UserID, input.AssetType, input.Amount); err != nil {
			return err
		}
		return s.withdrawalRepo.Create(ctx, ext, withdrawal)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		"withdrawal_id", withdrawal.ID,
		"user_id", input.UserID,
		"amount", input.Amount.String())

	return s.execute(ctx, withdrawal)
}

// execute drives one pending request through the transfer. Only the worker
// that wins the pending -> processing transition touches the chain.
func (s *WithdrawalService) execute(ctx context.Context, withdrawal *entities.WithdrawalRequest) (*entities.RequestWithdrawalResponse, error) {
	claimed, err := s.withdrawalRepo.MarkProcessing(ctx, withdrawal.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.withdrawalRepo.GetByID(ctx, withdrawal.ID)
		if err != nil {
			return nil, err
		}
		return &entities.RequestWithdrawalResponse{
			WithdrawalID: current.ID,
			Status:       current.Status,
			TxHash:       current.TxHash,
		}, nil
	}

	txHash, transferErr := s.transferor.TransferToken(ctx, withdrawal.DestinationAddress, withdrawal.Amount)

	if transferErr == nil {
		err := s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
			if err := s.withdrawalRepo.MarkCompleted(ctx, ext, withdrawal.ID, txHash); err != nil {
				return err
			}
			return s.ledger.RecordWithdrawn(ctx, ext, withdrawal.UserID, withdrawal.AssetType, withdrawal.Amount)
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("withdrawal completed", "withdrawal_id", withdrawal.ID, "tx_hash", txHash)
		return &entities.RequestWithdrawalResponse{
			WithdrawalID: withdrawal.ID,
			Status:       entities.WithdrawalStatusCompleted,
			TxHash:       &txHash,
		}, nil
	}

	if errors.Is(transferErr, chain.ErrTransferIndeterminate) {
		// The transfer may have landed. Keep the debit, keep the request in
		// processing and let reconciliation decide.
		if txHash != "" {
			if err := s.withdrawalRepo.SetTxHash(ctx, withdrawal.ID, txHash); err != nil {
				s.logger.Error("failed to record indeterminate tx hash", "withdrawal_id", withdrawal.ID, "error", err)
			}
		}
		s.logger.Warn("withdrawal outcome indeterminate, awaiting reconciliation",
			"withdrawal_id", withdrawal.ID, "tx_hash", txHash)
		resp := &entities.RequestWithdrawalResponse{
			WithdrawalID: withdrawal.ID,
			Status:       entities.WithdrawalStatusProcessing,
		}
		if txHash != "" {
			resp.TxHash = &txHash
		}
		return resp, nil
	}

	if err := s.failAndRefund(ctx, withdrawal, transferErr.Error()); err != nil {
		return nil, err
	}
	return &entities.RequestWithdrawalResponse{
		WithdrawalID: withdrawal.ID,
		Status:       entities.WithdrawalStatusFailed,
	}, nil
}

// failAndRefund marks the request failed and returns the debited amount.
// The refunded-flag flip and the refund share a transaction, so the refund
// happens exactly once no matter how many workers observe the failure.
func (s *WithdrawalService) failAndRefund(ctx context.Context, withdrawal *entities.WithdrawalRequest, reason string) error {
	return s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
		owned, err := s.withdrawalRepo.MarkFailedAndRefunded(ctx, ext, withdrawal.ID, reason)
		if err != nil {
			return err
		}
		if !owned {
			return nil
		}
		if err := s.ledger.Refund(ctx, ext, withdrawal.UserID, withdrawal.AssetType, withdrawal.Amount); err != nil {
			return err
		}
		s.logger.Info("withdrawal failed and refunded",
			"withdrawal_id", withdrawal.ID, "reason", reason)
		return nil
	})
}

// Resolve settles a processing request after operator reconciliation:
// confirmed transfers complete, unconfirmed ones fail and refund.
func (s *WithdrawalService) Resolve(ctx context.Context, id uuid.UUID, confirmed bool, txHash string) (*entities.WithdrawalRequest, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != entities.WithdrawalStatusProcessing {
		return nil, domainerrors.ValidationError("status", "only processing withdrawals can be resolved")
	}

	if confirmed {
		if txHash == "" && withdrawal.TxHash != nil {
			txHash = *withdrawal.TxHash
		}
		err = s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
			if err := s.withdrawalRepo.MarkCompleted(ctx, ext, id, txHash); err != nil {
				return err
			}
			return s.ledger.RecordWithdrawn(ctx, ext, withdrawal.UserID, withdrawal.AssetType, withdrawal.Amount)
		})
	} else {
		err = s.failAndRefund(ctx, withdrawal, "transfer not found on chain")
	}
	if err != nil {
		return nil, err
	}

	return s.withdrawalRepo.GetByID(ctx, id)
}

// GetWithdrawal returns one request, restricted to its owner
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, userID, id uuid.UUID) (*entities.WithdrawalRequest, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.UserID != userID {
		return nil, domainerrors.NotFoundError("withdrawal")
	}
	return withdrawal, nil
}

// ListUserWithdrawals returns a user's withdrawal history
func (s *WithdrawalService) ListUserWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.withdrawalRepo.GetByUser(ctx, userID, limit, offset)
}

// ListStuck returns processing requests for the reconciliation queue
func (s *WithdrawalService) ListStuck(ctx context.Context, limit, offset int) ([]*entities.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.withdrawalRepo.ListByStatus(ctx, entities.WithdrawalStatusProcessing, limit, offset)
}
