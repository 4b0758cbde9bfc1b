package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/kutbulzaman/mlm_backend/controllers"
	"github.com/kutbulzaman/mlm_backend/middleware"
)

// RegisterAdminRoutes sets up the admin-only routes
func RegisterAdminRoutes(e *echo.Echo, adminController *controllers.AdminController, placementController *controllers.PlacementController, walletController *controllers.WalletController, commissionController *controllers.CommissionController) {
	r := e.Group("/api/admin")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.RequireAdmin())

	r.GET("/dashboard", adminController.Dashboard)
	r.GET("/users/:id", adminController.GetUser)
	r.PUT("/users/:id/deactivate", adminController.DeactivateUser)
	r.PUT("/users/:id/reactivate", adminController.ReactivateUser)
	r.DELETE("/users/:id", adminController.DeleteUser)

	// Tree management
	r.POST("/placement", placementController.PlaceUser)
	r.POST("/placement/move", placementController.MoveUser)
	r.POST("/placement/test", placementController.TestPlacement)
	r.GET("/placement/capacity", placementController.CheckCapacity)
	r.GET("/tree/:id", placementController.BinaryAnalysis)

	// Withdrawals
	r.GET("/withdrawals", walletController.ListWithdrawals)
	r.PUT("/withdrawals/:id", walletController.ProcessWithdrawal)

	// Distribution audit trail
	r.GET("/distributions", commissionController.ListDistributions)
	r.GET("/distributions/:eventId", commissionController.GetDistribution)
}
