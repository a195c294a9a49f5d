package api

import (
	"github.com/babysphere/backend/internal/api/controllers"
	"github.com/babysphere/backend/internal/api/middleware"
	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/db"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router manages the API routes and controllers
type Router struct {
	engine              *gin.Engine
	logger              *utils.Logger
	config              *config.Config
	authMiddleware      *middleware.AuthMiddleware
	serviceProvider     *services.ServiceProvider
	db                  *db.Database
	apiV1               *gin.RouterGroup
	healthController    *controllers.HealthController
	readingController   *controllers.ReadingController
	historyController   *controllers.HistoryController
	alertController     *controllers.AlertController
	websocketController *controllers.WebSocketController
}

// NewRouter creates a new Router instance
func NewRouter(
	config *config.Config,
	logger *utils.Logger,
	db *db.Database,
	serviceProvider *services.ServiceProvider,
) *Router {
	// Set Gin mode based on environment
	if config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.LoggingMiddleware(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Origin"}
	engine.Use(cors.New(corsConfig))

	return &Router{
		engine:          engine,
		logger:          logger.Named("router"),
		config:          config,
		authMiddleware:  middleware.NewAuthMiddleware(&config.JWT),
		serviceProvider: serviceProvider,
		db:              db,
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	r.healthController = controllers.NewHealthController(r.db, r.serviceProvider.HealthChecks(), r.logger)
	r.readingController = controllers.NewReadingController(
		r.serviceProvider.GetIngestService(),
		r.serviceProvider.GetHistoryService(),
		r.logger,
	)
	r.historyController = controllers.NewHistoryController(r.serviceProvider.GetHistoryService(), r.logger)
	r.alertController = controllers.NewAlertController(r.serviceProvider.GetAlertService(), r.logger)
	r.websocketController = controllers.NewWebSocketController(r.serviceProvider.GetNotificationService(), r.logger)

	// Health check (no auth required)
	r.healthController.RegisterRoutes(r.engine.Group(""))

	r.apiV1 = r.engine.Group("/api/v1")

	authorizedRoutes := r.apiV1.Group("")
	authorizedRoutes.Use(r.authMiddleware.RequireAuth())

	r.readingController.RegisterRoutes(authorizedRoutes.Group("/readings"))
	r.historyController.RegisterRoutes(authorizedRoutes.Group("/history"))
	r.alertController.RegisterRoutes(authorizedRoutes.Group("/alerts"))
	r.websocketController.RegisterRoutes(authorizedRoutes)

	// Add Swagger documentation if not in production
	if !r.config.Server.IsProduction() {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.logger.Info("API routes setup completed")
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
