package routes

import (
	"time"

	"kkp/api/handler"
	"kkp/api/middleware"
	"kkp/internal/entity"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(e *echo.Echo, authHandler *handler.AuthHandler, authMiddleware middleware.AuthMiddleware) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	e.Use(middleware.Metrics())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/login/mfa", r.Auth.LoginWithMFA, r.LoginRate.Middleware())
	e.POST("/auth/login/google", r.Auth.LoginWithGoogle, r.LoginRate.Middleware())
	e.POST("/auth/logout", r.Auth.Logout, r.AuthMiddleware.RequireAuth)

	user := e.Group("/user", r.AuthMiddleware.RequireAuth)
	user.GET("/info", r.Auth.UserInfo)
	user.POST("/mfa/provision", r.Auth.ProvisionMFA)
	user.POST("/mfa/enable", r.Auth.EnableMFA, r.LoginRate.Middleware())
	user.POST("/mfa/disable", r.Auth.DisableMFA, r.LoginRate.Middleware())
	user.PATCH("/password", r.Auth.ChangePassword, r.LoginRate.Middleware())
	user.POST("/register-device", r.Auth.RegisterDevice)
	user.POST("/unregister-device", r.Auth.UnregisterDevice)
	user.POST("/location", r.Auth.UpdateLocation)

	admin := e.Group("/admin", r.AuthMiddleware.RequireAuth, middleware.RequireRole(entity.UserRoleGlobalAdmin))
	admin.GET("/users", r.Auth.AdminListUsers)
	admin.GET("/users/:id", r.Auth.AdminGetUser)
	admin.POST("/users/:id/disable-mfa", r.Auth.AdminDisableMFA)
	admin.POST("/users/:id/revoke-sessions", r.Auth.AdminRevokeUserSessions)
}
