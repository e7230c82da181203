package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/config"
	"github.com/landfund/impactportal/controllers"
	"github.com/landfund/impactportal/middleware"
	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// Services bundles the engine components the routes expose.
type Services struct {
	Ledger      *services.Ledger
	Engine      *services.Engine
	Tiers       *services.TierResolver
	Vesting     *services.VestingCalculator
	Balance     *services.BalanceService
	Distributor *services.Distributor
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc Services) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, svc.Engine)
	rewardController := controllers.NewRewardController(svc.Engine)
	ledgerController := controllers.NewLedgerController(svc.Ledger, svc.Balance)
	tierController := controllers.NewTierController(svc.Tiers)
	vestingController := controllers.NewVestingController(svc.Vesting)
	referralController := controllers.NewReferralController(db)
	pioneerController := controllers.NewPioneerController(svc.Balance)
	adminController := controllers.NewAdminController(db, svc.Ledger, svc.Tiers)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public catalog and ranking
	api.GET("/tiers", tierController.List)
	api.GET("/tiers/resolve", tierController.Resolve)
	api.GET("/pioneer/leaderboard", pioneerController.Leaderboard)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())

	rewards := protected.Group("")
	rewards.Use(middleware.RateLimitMiddleware())
	rewards.POST("/rewards/execute", rewardController.Execute)
	rewards.POST("/contributions", rewardController.Contribute)
	rewards.POST("/signin/daily", rewardController.DailySignIn)

	protected.GET("/ledger/balance", ledgerController.Balance)
	protected.GET("/ledger/history", ledgerController.History)
	protected.POST("/ledger/spend", ledgerController.Spend)
	protected.GET("/vesting/balance", vestingController.Balance)
	protected.GET("/referrals/me", referralController.Me)
	protected.GET("/pioneer/me", pioneerController.Me)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.POST("/tiers", adminController.CreateTier)
	admin.PUT("/tiers/:id", adminController.UpdateTier)
	admin.POST("/actions", adminController.CreateAction)
	admin.PUT("/actions/:id", adminController.UpdateAction)
	admin.POST("/users/:id/grant", adminController.GrantCredits)
	admin.POST("/pioneer/:id/approve", pioneerController.Approve)
	admin.POST("/pioneer/:id/revoke", pioneerController.Revoke)
	admin.POST("/pioneer/:id/reject", pioneerController.Reject)
	admin.POST("/pioneer/sweep", pioneerController.Sweep)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
