// controllers/commission_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/services"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

// CommissionController receives payment events and serves the distribution
// audit trail
type CommissionController struct {
	repo       repositories.MemberRepository
	ledger     repositories.LedgerRepository
	commission *services.CommissionService
	hub        *websocket.Hub
}

// NewCommissionController creates a new commission controller
func NewCommissionController(repo repositories.MemberRepository, ledger repositories.LedgerRepository, commission *services.CommissionService, hub *websocket.Hub) *CommissionController {
	return &CommissionController{
		repo:       repo,
		ledger:     ledger,
		commission: commission,
		hub:        hub,
	}
}

// HandleEvent is the payment-webhook entry point. The gateway supplies an
// event id; when it does not, one is minted so retries of the same request
// body stay distinguishable from genuine duplicates.
func (cc *CommissionController) HandleEvent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	var req models.CommissionEventRequest
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

	source, err := cc.resolveSource(ctx, req.SourceMemberID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Source member not found",
		})
	}

	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	dist, err := cc.commission.Distribute(ctx, models.CommissionEvent{
		EventID:        eventID,
		SourceMemberID: source.ID,
		Amount:         req.Amount,
		EventType:      req.EventType,
	})
	if err != nil {
		// A replayed event id is a gateway retry, not a failure. Answer 2xx
		// with the original distribution so the gateway stops resending.
		if errors.Is(err, services.ErrDuplicateEvent) {
			existing, lookupErr := cc.ledger.GetDistributionByEventID(ctx, eventID)
			if lookupErr != nil {
				c.Logger().Errorf("Duplicate event %s but distribution missing: %v", eventID, lookupErr)
				return c.JSON(http.StatusInternalServerError, models.Response{
					Status:  http.StatusInternalServerError,
					Message: "Distribution failed",
				})
			}
			return c.JSON(http.StatusOK, models.Response{
				Status:  http.StatusOK,
				Message: "Event already distributed",
				Data:    existing,
			})
		}
		return cc.distributionError(c, err)
	}

	for _, recipient := range dist.Recipients {
		cc.hub.NotifyCommission(recipient.MemberID, map[string]interface{}{
			"amount":  recipient.Amount,
			"role":    recipient.Role,
			"eventId": dist.EventID,
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission distributed",
		Data:    dist,
	})
}

// ListDistributions returns recent distribution records (admin only)
func (cc *CommissionController) ListDistributions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	limit := int64(50)
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 500 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid limit",
			})
		}
		limit = parsed
	}

	distributions, err := cc.ledger.ListDistributions(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load distributions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Distributions",
		Data:    distributions,
	})
}

// GetDistribution returns one distribution by its event id (admin only)
func (cc *CommissionController) GetDistribution(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	dist, err := cc.ledger.GetDistributionByEventID(ctx, c.Param("eventId"))
	if err != nil {
		if err == repositories.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Distribution not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load distribution",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Distribution",
		Data:    dist,
	})
}

// MyCommissions returns the calling member's commission ledger entries
func (cc *CommissionController) MyCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	transactions, err := cc.ledger.ListTransactions(ctx, userID, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load commissions",
		})
	}

	commissions := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Type == models.TransactionCommission || tx.Type == models.TransactionBonus {
			commissions = append(commissions, tx)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission history",
		Data:    commissions,
	})
}

// resolveSource accepts either a Mongo object id or a public member id
func (cc *CommissionController) resolveSource(ctx context.Context, identifier string) (*models.User, error) {
	if objID, err := primitive.ObjectIDFromHex(identifier); err == nil {
		return cc.repo.GetByID(ctx, objID)
	}
	return cc.repo.GetByMemberID(ctx, identifier)
}

func (cc *CommissionController) distributionError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Distribution failed"

	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		status, message = http.StatusBadRequest, "Amount must be positive"
	case errors.Is(err, services.ErrSourceMemberNotFound):
		status, message = http.StatusNotFound, "Source member not found"
	case errors.Is(err, services.ErrCycleDetected):
		status, message = http.StatusUnprocessableEntity, "Corrupted upline chain"
	}

	if status == http.StatusInternalServerError {
		c.Logger().Errorf("Distribution failed: %v", err)
	}
	return c.JSON(status, models.Response{Status: status, Message: message})
}
