package chain

import "errors"

var (
	// ErrInvalidAddress indicates a malformed destination or wallet address
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInsufficientLiquidity indicates the relayer wallet cannot cover
	// the requested transfer
	ErrInsufficientLiquidity = errors.New("insufficient relayer liquidity")

	// ErrTransferReverted indicates the transfer was mined but reverted
	ErrTransferReverted = errors.New("transfer reverted on-chain")

	// ErrTransferIndeterminate indicates the transfer was broadcast but
	// its outcome could not be confirmed. Callers must not treat this as
	// success or failure; the withdrawal stays in processing for manual
	// reconciliation.
	ErrTransferIndeterminate = errors.New("transfer outcome indeterminate")
)
