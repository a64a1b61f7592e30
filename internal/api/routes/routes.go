package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/softstake/softstake_service/internal/api/handlers"
	"github.com/softstake/softstake_service/internal/api/middleware"
	"github.com/softstake/softstake_service/internal/infrastructure/di"
)

// Version is stamped at build time
var Version = "dev"

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	if container.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware, order matters
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	userHandlers := handlers.NewUserHandlers(container.UserService, container.Config.JWT, container.Logger)
	roundHandlers := handlers.NewRoundHandlers(container.RoundService, container.Logger)
	communityHandlers := handlers.NewCommunityHandlers(container.CommunityService, container.TaskService, container.Logger)
	withdrawalHandlers := handlers.NewWithdrawalHandlers(container.WithdrawalService, container.Logger)
	ledgerHandlers := handlers.NewLedgerHandlers(container.LedgerRepo, container.CommissionRepo, container.Logger)
	referralHandlers := handlers.NewReferralHandlers(container.ReferralService, container.Logger)
	settingsHandlers := handlers.NewSettingsHandlers(container.SettingsRepo, container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.DB, container.Redis, container.Logger, Version)

	// Probes and metrics, no auth
	router.GET("/health/liveness", healthHandlers.Liveness)
	router.GET("/health/readiness", healthHandlers.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// Public
	v1.POST("/auth/register", userHandlers.Register)

	// Authenticated user surface
	authed := v1.Group("")
	authed.Use(middleware.Authentication(container.Config.JWT.Secret))
	{
		authed.GET("/users/me", userHandlers.GetMe)
		authed.POST("/users/me/wallet", userHandlers.BindWallet)
		authed.POST("/users/me/permit", userHandlers.SubmitPermit)
		authed.GET("/users/me/permit", userHandlers.PermitStatus)

		authed.GET("/community/status", communityHandlers.GetStatus)
		authed.POST("/community/claims", communityHandlers.ClaimPool)
		authed.GET("/community/claims", communityHandlers.GetPoolClaims)
		authed.GET("/community/daily-earnings", communityHandlers.GetDailyEarnings)
		authed.POST("/community/tasks", communityHandlers.SubmitTask)
		authed.GET("/community/tasks", communityHandlers.ListMyTasks)

		authed.GET("/ledger/balances", ledgerHandlers.GetBalances)
		authed.GET("/ledger/commissions", ledgerHandlers.GetCommissions)

		authed.GET("/referrals/team", referralHandlers.GetTeam)

		authed.POST("/withdrawals", withdrawalHandlers.RequestWithdrawal)
		authed.GET("/withdrawals", withdrawalHandlers.ListWithdrawals)
		authed.GET("/withdrawals/:withdrawalId", withdrawalHandlers.GetWithdrawal)
	}

	// Operator surface
	admin := authed.Group("/admin")
	admin.Use(middleware.AdminOnly())
	{
		admin.POST("/rounds", roundHandlers.StartRound)
		admin.GET("/rounds", roundHandlers.ListRounds)
		admin.GET("/rounds/:roundId", roundHandlers.GetRound)
		admin.POST("/rounds/:roundId/distribute", roundHandlers.DistributeRound)
		admin.POST("/rounds/:roundId/cancel", roundHandlers.CancelRound)

		admin.GET("/daily-earnings/preview", communityHandlers.PreviewDaily)
		admin.POST("/daily-earnings/distribute", communityHandlers.DistributeDaily)
		admin.PUT("/users/:userId/level-override", communityHandlers.SetOverride)
		admin.DELETE("/users/:userId/level-override", communityHandlers.ClearOverride)
		admin.PUT("/users/:userId/influencer", communityHandlers.SetInfluencer)

		admin.GET("/tasks", communityHandlers.ListPendingTasks)
		admin.POST("/tasks/:taskId/review", communityHandlers.ReviewTask)

		admin.GET("/withdrawals/stuck", withdrawalHandlers.ListStuck)
		admin.POST("/withdrawals/:withdrawalId/resolve", withdrawalHandlers.ResolveWithdrawal)

		admin.GET("/settings", settingsHandlers.GetSettings)
		admin.PUT("/settings/interval", settingsHandlers.UpdateInterval)
		admin.GET("/tiers", settingsHandlers.ListTierBands)
		admin.PUT("/tiers", settingsHandlers.UpsertTierBand)
		admin.DELETE("/tiers/:tierId", settingsHandlers.DeleteTierBand)
		admin.GET("/levels", settingsHandlers.ListLevelBands)
		admin.PUT("/levels", settingsHandlers.UpsertLevelBand)
		admin.GET("/commission-rates", settingsHandlers.ListCommissionRates)
		admin.PUT("/commission-rates", settingsHandlers.SetCommissionRate)
		admin.GET("/withdrawal-minimums/:asset", settingsHandlers.GetWithdrawalMinimum)
		admin.PUT("/withdrawal-minimums", settingsHandlers.SetWithdrawalMinimum)
	}

	return router
}
