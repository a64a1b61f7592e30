// Package chain provides the blockchain access layer: ERC-20 balance reads
// for the snapshot engine and relayer-signed token transfers for
// withdrawal execution. The rest of the system consumes it through the
// BalanceOracle and TokenTransferor interfaces only.
package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/softstake/softstake_service/internal/infrastructure/config"
	"github.com/softstake/softstake_service/pkg/logger"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// Client wraps an Ethereum RPC connection with the token metadata and the
// relayer signing key. RPC calls go through a circuit breaker so a flaky
// node trips fast instead of stalling batch jobs.
type Client struct {
	eth            *ethclient.Client
	breaker        *gobreaker.CircuitBreaker
	tokenABI       abi.ABI
	tokenAddress   common.Address
	tokenDecimals  int32
	chainID        *big.Int
	relayerKey     *ecdsa.PrivateKey
	relayerAddr    common.Address
	callTimeout    time.Duration
	receiptTimeout time.Duration
	logger         *logger.Logger
}

// NewClient dials the configured RPC endpoint and prepares the relayer key
func NewClient(cfg config.ChainConfig, log *logger.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.RPCURL)
	if endpoint == "" {
		return nil, fmt.Errorf("chain rpc url required")
	}
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address: %s", cfg.TokenAddress)
	}

	eth, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayerPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relayer key: %w", err)
	}

	callTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	if callTimeout == 0 {
		callTimeout = 15 * time.Second
	}
	receiptTimeout := time.Duration(cfg.ReceiptTimeout) * time.Second
	if receiptTimeout == 0 {
		receiptTimeout = 90 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chain-rpc",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		eth:            eth,
		breaker:        breaker,
		tokenABI:       parsedABI,
		tokenAddress:   common.HexToAddress(cfg.TokenAddress),
		tokenDecimals:  cfg.TokenDecimals,
		chainID:        big.NewInt(cfg.ChainID),
		relayerKey:     key,
		relayerAddr:    crypto.PubkeyToAddress(key.PublicKey),
		callTimeout:    callTimeout,
		receiptTimeout: receiptTimeout,
		logger:         log,
	}, nil
}

// RelayerAddress returns the relayer wallet address
func (c *Client) RelayerAddress() string {
	return c.relayerAddr.Hex()
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// toTokenUnits converts a decimal amount to the token's integer units
func (c *Client) toTokenUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(c.tokenDecimals).BigInt()
}

// fromTokenUnits converts integer token units back to a decimal amount
func (c *Client) fromTokenUnits(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, 0).Shift(-c.tokenDecimals)
}
