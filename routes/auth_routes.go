package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/kutbulzaman/mlm_backend/controllers"
)

// RegisterAuthRoutes sets up the public authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	e.POST("/api/auth/signup", authController.Signup)
	e.POST("/api/auth/login", authController.Login)
	e.POST("/api/auth/logout", authController.Logout)
	e.POST("/api/auth/remember-me", authController.GetRememberedCredentials)
	e.GET("/api/auth/validate-session", authController.ValidateSession)
}
