package routes

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"challenges/config"
	"challenges/handlers"
	"challenges/middleware"
	"challenges/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	Config    *config.Config
	Posts     *handlers.PostHandler
	Reactions *handlers.ReactionHandler
	Auth      *handlers.AuthHandler
	Hub       *websocket.Manager
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	router := gin.New()
	router.Use(middleware.RequestLogger(), middleware.Recovery())

	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
			"store":  cfg.StoreDriver,
		})
	})

	if deps.Hub != nil {
		wsHandler := websocket.Handler(deps.Hub, middleware.TokenVerifier(cfg.JWTSecret))
		router.GET("/ws", gin.WrapF(wsHandler))
	}

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimit))

	api.POST("/signup", deps.Auth.Signup)
	api.POST("/login", deps.Auth.Login)

	api.GET("/posts", deps.Posts.ListPosts)
	api.GET("/posts/:id", deps.Posts.GetPost)
	api.POST("/posts/:id/comments", deps.Reactions.AddComment)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	protected.POST("/posts/:id/like", deps.Reactions.ToggleLike)

	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/posts", deps.Posts.CreatePost)
	admin.PUT("/posts/:id", deps.Posts.UpdatePost)
	admin.DELETE("/posts/:id", deps.Posts.DeletePost)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Endpoint not found",
				"path":    c.Request.URL.Path,
				"message": "Check the API documentation for available endpoints",
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	// credentials cannot be combined with a wildcard origin
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
