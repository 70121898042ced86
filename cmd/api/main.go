package main

import (
	"log"

	_ "compliance-backend/api/swagger" // swagger docs
	"compliance-backend/internal/cache"
	"compliance-backend/internal/config"
	"compliance-backend/internal/database"
	"compliance-backend/internal/handler"
	"compliance-backend/internal/identity"
	"compliance-backend/internal/middleware"
	"compliance-backend/internal/repository"
	"compliance-backend/internal/service"
	"compliance-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Compliance Tracker API
// @version         1.0
// @description     Multi-tenant compliance-task tracking backend: departments, checklist items, tags and progress dashboards, with membership-scoped row visibility.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Shared collection cache (stale-while-revalidate)
	store := cache.New(cache.DefaultFreshness, nil)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	profileRepo := repository.NewProfileRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db, membershipRepo)
	checklistRepo := repository.NewChecklistRepository(db, membershipRepo)
	tagRepo := repository.NewTagRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	idp := identity.NewHTTPProvider(cfg.IdentityAPIURL, cfg.IdentityAPIKey)
	resolver := identity.NewResolver(idp, profileRepo, []byte(cfg.DataTokenSecret), cfg.DataTokenTTL, cfg.AdminEmailDomains)
	auth := middleware.NewAuth([]byte(cfg.DataTokenSecret), profileRepo)

	auditService := service.NewAuditService(auditRepo)
	departmentService := service.NewDepartmentService(departmentRepo, membershipRepo, txManager, store, auditService, wsHub)
	checklistService := service.NewChecklistService(checklistRepo, membershipRepo, tagRepo, store, auditService, wsHub)
	tagService := service.NewTagService(tagRepo, store, auditService, wsHub)
	dashboardService := service.NewDashboardService(departmentService)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(idp, resolver, auth)
	departmentHandler := handler.NewDepartmentHandler(departmentService, auth)
	checklistHandler := handler.NewChecklistHandler(checklistService, auth)
	tagHandler := handler.NewTagHandler(tagService, auth)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, auth)
	auditHandler := handler.NewAuditHandler(auditService, auth)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, []byte(cfg.DataTokenSecret))
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	departmentHandler.RegisterRoutes(router.Group(""))
	checklistHandler.RegisterRoutes(router.Group(""))
	tagHandler.RegisterRoutes(router.Group(""))
	dashboardHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
