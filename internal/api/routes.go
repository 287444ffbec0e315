package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediastream/streaming-app/internal/service"
)

// SetupRoutes wires handlers into the router.
//
// The stream endpoint stays outside the authenticated group: a stream
// link is a capability and its bearer may be a different, anonymous
// client than the admin who requested it.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	mediaService service.MediaService,
) {
	authHandler := NewAuthHandler(authService)
	mediaHandler := NewMediaHandler(mediaService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	router.GET("/stream", mediaHandler.Stream)

	mediaGroup := router.Group("/media")
	mediaGroup.Use(authMiddleware)
	{
		mediaGroup.POST("", mediaHandler.Upload)
		mediaGroup.GET("/:id", mediaHandler.GetMedia)
		mediaGroup.GET("/:id/stream-url", mediaHandler.GetStreamURL)
		mediaGroup.POST("/:id/view", mediaHandler.RecordView)
		mediaGroup.GET("/:id/analytics", mediaHandler.Analytics)
	}
}
