package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/emoticket/config"
	"github.com/cppla/emoticket/controllers"
	"github.com/cppla/emoticket/middleware"
	"github.com/cppla/emoticket/services"
	"github.com/cppla/emoticket/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
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
	r.Use(middleware.RequestID())
	r.Use(utils.Ginzap(accessLogger(cfg), time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(utils.Logger, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDKey},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// wildcard origins cannot be combined with credentials
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	ticketService := services.NewTicketService(db, cfg.TicketSecret, time.Duration(cfg.SubmitLockSeconds)*time.Second)
	catalogService := services.NewCatalogService(db, time.Duration(cfg.StatsCacheSeconds)*time.Second)

	ticketController := controllers.NewTicketController(ticketService)
	progressController := controllers.NewProgressController(catalogService)

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	protected.GET("/tickets", ticketController.GetTicket)
	protected.POST("/tickets", ticketController.PostTicket)
	protected.GET("/streak", progressController.StreakStatus)
	protected.GET("/stats", progressController.GetStats)
	protected.POST("/texts", progressController.ImportTexts)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

// accessLogger writes the access log to its own rolling file outside test mode.
func accessLogger(cfg config.AppConfig) *zap.Logger {
	if gin.Mode() == gin.TestMode {
		return utils.Logger
	}
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("gin access log falls back to app logger: %v", err)
		return utils.Logger
	}
	return gl
}
