package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ReadTokenBalance reads the reference-asset balance of a wallet.
// Implements BalanceOracle.
func (c *Client) ReadTokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	return c.balanceOf(ctx, common.HexToAddress(address))
}

// RelayerBalance reads the relayer wallet's own token balance.
// Implements TokenTransferor.
func (c *Client) RelayerBalance(ctx context.Context) (decimal.Decimal, error) {
	return c.balanceOf(ctx, c.relayerAddr)
}

func (c *Client) balanceOf(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	input, err := c.tokenABI.Pack("balanceOf", owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.eth.CallContract(callCtx, ethereum.CallMsg{
			To:   &c.tokenAddress,
			Data: input,
		}, nil)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of %s: %w", owner.Hex(), err)
	}

	output := result.([]byte)
	values, err := c.tokenABI.Unpack("balanceOf", output)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	units, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result type")
	}

	return c.fromTokenUnits(units), nil
}
