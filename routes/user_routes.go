package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/kutbulzaman/mlm_backend/controllers"
	"github.com/kutbulzaman/mlm_backend/middleware"
)

// RegisterUserRoutes sets up the member-facing protected routes
func RegisterUserRoutes(e *echo.Echo, referralController *controllers.ReferralController, walletController *controllers.WalletController, membershipController *controllers.MembershipController, commissionController *controllers.CommissionController, placementController *controllers.PlacementController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Referral routes
	r.GET("/referral", referralController.GetReferralData)
	r.GET("/referral/qrcode", referralController.GetReferralQRCode)
	r.GET("/referral/direct", referralController.GetDirectReferrals)

	// Tree routes
	r.GET("/tree/my", placementController.MyTree)

	// Wallet routes
	r.GET("/wallet", walletController.GetWallet)
	r.GET("/wallet/transactions", walletController.GetTransactions)
	r.POST("/wallet/withdrawals", walletController.RequestWithdrawal)
	r.POST("/wallet/transfer", walletController.Transfer)
	r.PUT("/wallet/bank-details", walletController.UpdateBankDetails)

	// Commission routes
	r.GET("/commissions/my", commissionController.MyCommissions)

	// Membership routes
	r.GET("/membership", membershipController.MyMembership)
	r.GET("/membership/packages", membershipController.ListPackages)
	r.POST("/membership/confirm-payment", membershipController.ConfirmPayment)
}
