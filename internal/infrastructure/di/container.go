// Package di wires repositories, adapters and services into one
// container consumed by the route setup and the workers.
package di

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/softstake/softstake_service/internal/adapters/chain"
	"github.com/softstake/softstake_service/internal/domain/services"
	"github.com/softstake/softstake_service/internal/infrastructure/cache"
	"github.com/softstake/softstake_service/internal/infrastructure/config"
	"github.com/softstake/softstake_service/internal/infrastructure/database"
	"github.com/softstake/softstake_service/internal/infrastructure/repositories"
	"github.com/softstake/softstake_service/pkg/logger"
)

// Container holds the application dependency graph
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *sqlx.DB
	Redis  cache.RedisClient
	Chain  *chain.Client

	// Repositories
	UserRepo       *repositories.UserRepository
	PermitRepo     *repositories.PermitRepository
	SettingsRepo   *repositories.SettingsRepository
	RoundRepo      *repositories.RoundRepository
	CommissionRepo *repositories.CommissionRepository
	CommunityRepo  *repositories.CommunityRepository
	LedgerRepo     *repositories.LedgerRepository
	WithdrawalRepo *repositories.WithdrawalRepository
	TaskRepo       *repositories.TaskRepository

	// Services
	BalanceService    *services.BalanceService
	ReferralService   *services.ReferralService
	RoundService      *services.RoundService
	CommunityService  *services.CommunityService
	WithdrawalService *services.WithdrawalService
	UserService       *services.UserService
	TaskService       *services.TaskService
}

// NewContainer builds the full dependency graph
func NewContainer(cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	chainClient, err := chain.NewClient(cfg.Chain, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chain client: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: log,
		DB:     db,
		Redis:  redisClient,
		Chain:  chainClient,
	}

	c.UserRepo = repositories.NewUserRepository(db)
	c.PermitRepo = repositories.NewPermitRepository(db)
	c.SettingsRepo = repositories.NewSettingsRepository(db)
	c.RoundRepo = repositories.NewRoundRepository(db)
	c.CommissionRepo = repositories.NewCommissionRepository(db)
	c.CommunityRepo = repositories.NewCommunityRepository(db)
	c.LedgerRepo = repositories.NewLedgerRepository(db)
	c.WithdrawalRepo = repositories.NewWithdrawalRepository(db)
	c.TaskRepo = repositories.NewTaskRepository(db)

	txRunner := database.NewTxRunner(db)
	cacheTTL := time.Duration(cfg.Workers.VolumeCacheTTL) * time.Second

	c.BalanceService = services.NewBalanceService(chainClient, redisClient, cacheTTL, log)
	c.ReferralService = services.NewReferralService(c.UserRepo, c.BalanceService, log)
	c.RoundService = services.NewRoundService(
		c.UserRepo,
		c.PermitRepo,
		c.SettingsRepo,
		c.RoundRepo,
		c.CommissionRepo,
		c.LedgerRepo,
		c.ReferralService,
		c.BalanceService,
		txRunner,
		log,
	)
	c.CommunityService = services.NewCommunityService(
		c.CommunityRepo,
		c.SettingsRepo,
		c.ReferralService,
		c.TaskRepo,
		c.LedgerRepo,
		txRunner,
		log,
	)
	c.WithdrawalService = services.NewWithdrawalService(
		c.WithdrawalRepo,
		c.LedgerRepo,
		c.SettingsRepo,
		c.UserRepo,
		chainClient,
		txRunner,
		log,
	)
	c.UserService = services.NewUserService(c.UserRepo, c.PermitRepo, log)
	c.TaskService = services.NewTaskService(c.TaskRepo, log)

	return c, nil
}

// Close releases the container's external connections
func (c *Container) Close() {
	if c.Chain != nil {
		c.Chain.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Error("failed to close database", "error", err)
		}
	}
}
