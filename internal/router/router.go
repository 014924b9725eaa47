// Package router registers the HTTP routes of the meeting admin API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/meeting-admin/internal/auth"
	"github.com/iliyamo/meeting-admin/internal/config"
	"github.com/iliyamo/meeting-admin/internal/handler"
	"github.com/iliyamo/meeting-admin/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints. Register, login, refresh and
// token-based logout live under /v1/auth without middleware; /v1/me and the
// revoke-all logout require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(jwtSecret))
	protected.GET("/me", a.Me)
	protected.POST("/logout", a.Logout)
}

// RegisterMeetings registers the meeting CRUD surface. All routes require a
// valid access token carrying one of the known roles; the redis-backed rate
// limiter and response cache wrap the group when a client is available.
func RegisterMeetings(e *echo.Echo, m *handler.MeetingHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1/meetings")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleUser))
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	g.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	g.POST("", m.Create)
	g.GET("", m.List)
	g.GET("/stats", m.Stats)
	g.GET("/assignable-users", m.AssignableUsers, middleware.RequirePrivileged())
	g.POST("/bulk-delete", m.BulkDelete)
	g.GET("/:id", m.Get)
	g.PUT("/:id", m.Update)
}
