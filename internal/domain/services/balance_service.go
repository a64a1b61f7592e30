package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/internal/infrastructure/cache"
	"github.com/softstake/softstake_service/pkg/logger"
)

// ChainBalanceReader reads token balances from the chain
type ChainBalanceReader interface {
	ReadTokenBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// BalanceService reads wallet token balances through a short-lived cache.
// Snapshot rounds bypass the cache; the cache only serves display paths and
// the team volume aggregation, where slightly stale figures are acceptable.
type BalanceService struct {
	reader ChainBalanceReader
	cache  cache.RedisClient
	ttl    time.Duration
	logger *logger.Logger
}

// NewBalanceService creates a new balance service
func NewBalanceService(reader ChainBalanceReader, redisClient cache.RedisClient, ttl time.Duration, log *logger.Logger) *BalanceService {
	return &BalanceService{
		reader: reader,
		cache:  redisClient,
		ttl:    ttl,
		logger: log,
	}
}

func balanceCacheKey(address string) string {
	return fmt.Sprintf("wallet_balance:%s", entities.NormalizeWalletAddress(address))
}

// GetWalletBalance returns the wallet's token balance, served from cache
// when fresh.
func (s *BalanceService) GetWalletBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	key := balanceCacheKey(address)

	var cached string
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if balance, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return balance, nil
		}
	} else if err != cache.ErrCacheMiss {
		s.logger.Warn("balance cache read failed", "address", address, "error", err)
	}

	balance, err := s.ReadFresh(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.cache.Set(ctx, key, balance.String(), s.ttl); err != nil {
		s.logger.Warn("balance cache write failed", "address", address, "error", err)
	}

	return balance, nil
}

// ReadFresh reads the balance directly from the chain, skipping the cache.
// Snapshot rounds use this path so credited profit is based on live data.
func (s *BalanceService) ReadFresh(ctx context.Context, address string) (decimal.Decimal, error) {
	balance, err := s.reader.ReadTokenBalance(ctx, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read wallet balance: %w", err)
	}
	return balance, nil
}
