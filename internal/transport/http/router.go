package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/ops-dashboard/internal/transport/http/handler"
	"github.com/ErlanBelekov/ops-dashboard/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth           *handler.AuthHandler
	Events         *handler.EventsHandler
	Users          *handler.UsersHandler
	RequireSession gin.HandlerFunc
}

func NewRouter(logger *slog.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	api := r.Group("/api")
	api.GET("/health", handler.Health)
	api.GET("/me", h.Auth.Me)

	auth := api.Group("/auth")
	auth.POST("/request", h.Auth.RequestSignIn)
	auth.POST("/verify", h.Auth.Verify)
	auth.POST("/logout", h.Auth.Logout)

	// Protected dashboard routes
	protected := api.Group("", h.RequireSession)
	protected.GET("/users/status", h.Users.Status)
	protected.GET("/logs", h.Events.List)
	protected.GET("/logs/stream", h.Events.Stream)

	return r
}
