package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// transferMu serializes transfer submissions. The relayer key is a single
// shared resource and the chain's nonce is positionally sequential, so the
// next transfer is only submitted after the prior one is mined or
// confirmed failed.
var transferMu sync.Mutex

// TransferToken sends amount of the reference asset from the relayer
// wallet to destination and waits for the transaction to be mined.
// Implements TokenTransferor.
//
// Returns ErrInsufficientLiquidity before broadcasting when the relayer
// cannot cover the amount, ErrTransferReverted when the mined transaction
// failed, and ErrTransferIndeterminate when the transaction was broadcast
// but no receipt arrived in time. The last case must be surfaced to the
// caller untouched: the outcome is unknown and must not be guessed.
func (c *Client) TransferToken(ctx context.Context, destination string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(destination) {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, destination)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("transfer amount must be positive, got %s", amount.String())
	}

	transferMu.Lock()
	defer transferMu.Unlock()

	// Liquidity pre-check; a transfer that would revert for lack of funds
	// is cheaper to reject here.
	relayerBalance, err := c.RelayerBalance(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to check relayer balance: %w", err)
	}
	if relayerBalance.LessThan(amount) {
		return "", fmt.Errorf("%w: have %s, need %s",
			ErrInsufficientLiquidity, relayerBalance.String(), amount.String())
	}

	input, err := c.tokenABI.Pack("transfer", common.HexToAddress(destination), c.toTokenUnits(amount))
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer call: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	nonce, err := c.eth.PendingNonceAt(callCtx, c.relayerAddr)
	if err != nil {
		return "", fmt.Errorf("failed to get relayer nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(callCtx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, c.tokenAddress, nil, 120000, gasPrice, input)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.relayerKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}

	if err := c.eth.SendTransaction(callCtx, signedTx); err != nil {
		return "", fmt.Errorf("failed to broadcast transfer: %w", err)
	}

	txHash := signedTx.Hash()
	c.logger.Info("Transfer broadcast",
		"tx_hash", txHash.Hex(),
		"destination", destination,
		"amount", amount.String())

	// Past this point the transaction is on the network; any failure to
	// observe the receipt is indeterminate, not a failure.
	receipt, err := c.waitForReceipt(ctx, txHash)
	if err != nil {
		c.logger.Warn("Transfer receipt not observed",
			"tx_hash", txHash.Hex(),
			"error", err)
		return txHash.Hex(), ErrTransferIndeterminate
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash.Hex(), fmt.Errorf("%w: %s", ErrTransferReverted, txHash.Hex())
	}

	c.logger.Info("Transfer confirmed",
		"tx_hash", txHash.Hex(),
		"block", receipt.BlockNumber.String())

	return txHash.Hex(), nil
}

// waitForReceipt polls for the transaction receipt until the configured
// receipt timeout elapses.
func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(c.receiptTimeout)
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			// transient RPC error; keep polling until the deadline
			c.logger.Debug("Receipt poll failed", "tx_hash", txHash.Hex(), "error", err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("receipt not found before deadline")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
