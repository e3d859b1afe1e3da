package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"careteam-chat-backend/internal/config"
	"careteam-chat-backend/internal/database"
	"careteam-chat-backend/internal/handler"
	"careteam-chat-backend/internal/middleware"
	"careteam-chat-backend/internal/repository"
	"careteam-chat-backend/internal/service"
	"careteam-chat-backend/internal/ws"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("Configuration loaded successfully")

	// 2. Initialize JWT utilities with config
	utils.InitJWT(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	service.SetStoreTimeout(cfg.Server.StoreTimeout)

	// 3. Initialize database connection and schema
	db := database.Connect(cfg)
	database.Migrate(db)

	// 4. Initialize repositories
	userRepo := repository.NewUserRepo(db)
	hospitalRepo := repository.NewHospitalRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	membershipRepo := repository.NewMembershipRepo(db)
	messageRepo := repository.NewMessageRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	// 5. Initialize services
	authService := service.NewAuthService(userRepo, auditRepo)
	userService := service.NewUserService(userRepo, hospitalRepo, auditRepo)
	hospitalService := service.NewHospitalService(hospitalRepo, auditRepo)
	roomService := service.NewRoomService(db, roomRepo, membershipRepo, messageRepo, userRepo, auditRepo)
	messageService := service.NewMessageService(messageRepo, membershipRepo, roomRepo)

	// 6. Initialize the broadcast hub and event gateway
	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, roomService, messageService)

	// 7. Setup Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// 8. Setup Gin router
	r := gin.Default()

	// Apply CORS middleware
	r.Use(middleware.CORS(cfg))

	// 9. Register handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	hospitalHandler := handler.NewHospitalHandler(hospitalService)
	roomHandler := handler.NewRoomHandler(roomService)
	messageHandler := handler.NewMessageHandler(messageService)
	wsHandler := handler.NewWSHandler(gateway, cfg.CORS.AllowedOrigins)

	// 10. Define routes
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "careteam-chat-backend",
		})
	})

	// Auth routes (public)
	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	// Websocket endpoint (authenticates before upgrading)
	r.GET("/ws", wsHandler.Connect)

	// Authenticated REST routes
	api := r.Group("/")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/users", userHandler.CreateUser)
		api.GET("/users/:id", userHandler.GetUser)

		api.GET("/hospitals", hospitalHandler.GetHospitals)
		api.POST("/hospitals", hospitalHandler.CreateHospital)
		api.GET("/hospitals/:id", hospitalHandler.GetHospital)
		api.PUT("/hospitals/:id", hospitalHandler.UpdateHospital)
		api.DELETE("/hospitals/:id", hospitalHandler.DeleteHospital)
		api.GET("/hospitals/:id/users", userHandler.GetUsersByHospital)
		api.GET("/hospitals/:id/rooms", roomHandler.GetHospitalRooms)

		api.GET("/rooms", roomHandler.GetMyRooms)
		api.POST("/rooms", roomHandler.CreateRoom)
		api.GET("/rooms/:id", roomHandler.GetRoom)
		api.PUT("/rooms/:id", roomHandler.UpdateRoom)
		api.DELETE("/rooms/:id", roomHandler.DeleteRoom)
		api.GET("/rooms/:id/members", roomHandler.GetMembers)
		api.POST("/rooms/:id/members", roomHandler.AddMembers)
		api.POST("/rooms/:id/leave", roomHandler.LeaveRoom)
		api.DELETE("/rooms/:id/members/:user_id", roomHandler.RemoveMember)

		api.GET("/rooms/:id/messages", messageHandler.GetMessages)
		api.POST("/rooms/:id/messages", messageHandler.CreateMessage)
		api.POST("/rooms/:id/messages/read", messageHandler.MarkRead)
		api.PUT("/messages/:id", messageHandler.UpdateMessage)
		api.DELETE("/messages/:id", messageHandler.DeleteMessage)
	}

	// 11. Setup graceful shutdown
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := r.Run(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
}
