package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/task-tracker/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// This endpoint can be used by load balancers or monitoring systems to
	// verify that the service is up and its database reachable.
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes under /api/auth.
// Register and login sit behind limiter only; /me also requires gate.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)

	// the account behind the presented token
	g.GET("/me", a.Me, gate)
}

// RegisterTasks registers the task routes.  gate runs first so that the
// limiter and the cache can key on the authenticated user.
func RegisterTasks(e *echo.Echo, h *handler.TaskHandler, gate, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/api/tasks", gate, limiter, cache)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
