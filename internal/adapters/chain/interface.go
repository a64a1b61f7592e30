package chain

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceOracle reads reference-asset balances from the chain. Reads may
// fail transiently; batch callers treat a failure as "skip this user this
// round" rather than aborting.
type BalanceOracle interface {
	ReadTokenBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// TokenTransferor submits reference-asset transfers from the custodial
// relayer wallet. Submissions are serialized per signer because the
// chain's nonce is positionally sequential.
type TokenTransferor interface {
	// RelayerBalance returns the relayer wallet's own token balance,
	// checked before a transfer to detect insufficient platform liquidity.
	RelayerBalance(ctx context.Context) (decimal.Decimal, error)

	// TransferToken sends amount to destination and returns the
	// transaction hash once mined. ErrTransferIndeterminate means the
	// transaction was broadcast but its outcome is unknown.
	TransferToken(ctx context.Context, destination string, amount decimal.Decimal) (string, error)
}
