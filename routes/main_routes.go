package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kutbulzaman/mlm_backend/controllers"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/utils"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

// SetupRoutes configures all API routes by calling individual route
// registration functions
func SetupRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub, authController *controllers.AuthController, referralController *controllers.ReferralController, walletController *controllers.WalletController, membershipController *controllers.MembershipController, commissionController *controllers.CommissionController, placementController *controllers.PlacementController, adminController *controllers.AdminController) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "OK",
		})
	})

	// Public token check used by the frontend on page load
	e.GET("/api/auth/validate-token", func(c echo.Context) error {
		result, err := utils.ValidateTokenFromHeader(c.Request().Header.Get("Authorization"), db)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Token validation failed",
			})
		}
		status := http.StatusOK
		if !result.Valid {
			status = http.StatusUnauthorized
		}
		return c.JSON(status, models.Response{
			Status:  status,
			Message: result.Message,
			Data:    result,
		})
	})

	// Payment-gateway webhook. The gateway retries on non-2xx, and the
	// event id makes retries idempotent.
	e.POST("/api/commission/events", commissionController.HandleEvent)

	// WebSocket endpoint. Clients connect anonymously and authenticate
	// in-band with an AUTH message.
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub, primitive.NilObjectID)
	})

	RegisterAuthRoutes(e, authController)
	RegisterUserRoutes(e, referralController, walletController, membershipController, commissionController, placementController)
	RegisterAdminRoutes(e, adminController, placementController, walletController, commissionController)
}
