// controllers/membership_controller.go
package controllers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/services"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

// MembershipController handles the package catalog and payment confirmation.
// A confirmed payment is the trigger for both membership activation and the
// commission distribution on that payment.
type MembershipController struct {
	repo       repositories.MemberRepository
	ledger     repositories.LedgerRepository
	commission *services.CommissionService
	career     *services.CareerService
	hub        *websocket.Hub
}

// NewMembershipController creates a new membership controller
func NewMembershipController(repo repositories.MemberRepository, ledger repositories.LedgerRepository, commission *services.CommissionService, career *services.CareerService, hub *websocket.Hub) *MembershipController {
	return &MembershipController{
		repo:       repo,
		ledger:     ledger,
		commission: commission,
		career:     career,
		hub:        hub,
	}
}

// ListPackages returns the purchasable membership packages
func (mc *MembershipController) ListPackages(c echo.Context) error {
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Membership packages",
		Data:    models.MembershipPackages,
	})
}

// ConfirmPayment activates the paid membership, records the investment,
// re-evaluates the member's career level and distributes commissions on the
// payment amount. The gateway payment id doubles as the distribution's
// idempotency key, so a replayed confirmation cannot pay the upline twice.
func (mc *MembershipController) ConfirmPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.PaymentConfirmation
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	pkg, ok := models.PackageByType(req.MembershipType)
	if !ok {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown membership type",
		})
	}
	expected := pkg.Price * (1 - pkg.Discount/100)
	if math.Abs(req.Amount-expected) > 0.01 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Amount does not match package price",
		})
	}

	user, err := mc.repo.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	// A confirmation whose payment id already produced a distribution is a
	// replay. Stop here so the membership and investment writes do not run
	// a second time.
	if existing, err := mc.ledger.GetDistributionByEventID(ctx, req.PaymentID); err == nil {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Payment already processed",
			Data: map[string]interface{}{
				"membershipType": user.MembershipType,
				"expiresAt":      user.MembershipExpiresAt,
				"distribution":   existing,
			},
		})
	}

	var expiresAt *time.Time
	if pkg.Duration > 0 {
		expiry := time.Now().AddDate(0, 0, pkg.Duration)
		expiresAt = &expiry
	}
	if err := mc.repo.SetMembership(ctx, user.ID, pkg.Type, expiresAt); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to activate membership",
		})
	}
	if err := mc.repo.IncrementInvestment(ctx, user.ID, req.Amount); err != nil {
		c.Logger().Errorf("Failed to record investment for %s: %v", user.ID.Hex(), err)
	}

	mc.ledger.AppendTransaction(ctx, &models.Transaction{
		UserID:      user.ID,
		Type:        models.TransactionPayment,
		Amount:      -req.Amount,
		Description: "Membership payment: " + pkg.Name,
		ReferenceID: req.PaymentID,
		CreatedAt:   time.Now(),
	})

	if level, promoted, err := mc.career.EvaluatePromotion(ctx, user.ID); err != nil {
		c.Logger().Errorf("Promotion check failed for %s: %v", user.ID.Hex(), err)
	} else if promoted {
		mc.hub.NotifyPromotion(user.ID, map[string]interface{}{
			"levelId": level.ID,
			"name":    level.Name,
			"bonus":   level.Bonus,
		})
	}

	dist, err := mc.commission.Distribute(ctx, models.CommissionEvent{
		EventID:        req.PaymentID,
		SourceMemberID: user.ID,
		Amount:         req.Amount,
		EventType:      eventTypeForMembership(pkg.Type),
	})
	if err != nil && err != services.ErrDuplicateEvent {
		c.Logger().Errorf("Distribution failed for payment %s: %v", req.PaymentID, err)
	}
	if dist != nil {
		for _, recipient := range dist.Recipients {
			mc.hub.NotifyCommission(recipient.MemberID, map[string]interface{}{
				"amount":  recipient.Amount,
				"role":    recipient.Role,
				"eventId": dist.EventID,
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Membership activated",
		Data: map[string]interface{}{
			"membershipType": pkg.Type,
			"expiresAt":      expiresAt,
		},
	})
}

// MyMembership returns the calling member's membership state
func (mc *MembershipController) MyMembership(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}
	user, err := mc.repo.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Membership",
		Data: map[string]interface{}{
			"membershipType": user.MembershipType,
			"expiresAt":      user.MembershipExpiresAt,
			"isActive":       user.IsActive,
		},
	})
}

func eventTypeForMembership(membershipType string) string {
	switch membershipType {
	case models.MembershipMonthly:
		return models.EventTypeMonthly
	case models.MembershipYearly:
		return models.EventTypeYearly
	default:
		return models.EventTypeEntry
	}
}
