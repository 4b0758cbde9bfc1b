// controllers/admin_controller.go
package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/services"
)

// AdminController serves the platform overview and destructive member
// operations
type AdminController struct {
	repo      repositories.MemberRepository
	ledger    repositories.LedgerRepository
	placement *services.PlacementService
	capacity  *services.CapacityService
}

// NewAdminController creates a new admin controller
func NewAdminController(repo repositories.MemberRepository, ledger repositories.LedgerRepository, placement *services.PlacementService, capacity *services.CapacityService) *AdminController {
	return &AdminController{
		repo:      repo,
		ledger:    ledger,
		placement: placement,
		capacity:  capacity,
	}
}

// Dashboard returns the platform-wide counters
func (ac *AdminController) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats := models.DashboardStats{}

	total, err := ac.repo.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load dashboard",
		})
	}
	stats.TotalMembers = total

	if active, err := ac.repo.CountActive(ctx); err == nil {
		stats.ActiveMembers = active
	}
	if capStatus, err := ac.capacity.CheckCapacity(ctx); err == nil {
		stats.CurrentCount = capStatus.CurrentCount
		stats.MaxCapacity = capStatus.MaxCapacity
	}
	if distributed, fund, err := ac.ledger.SumDistributions(ctx); err == nil {
		stats.TotalDistributed = distributed
		stats.TotalSystemFund = fund
	}
	if pending, err := ac.ledger.CountWithdrawals(ctx, "pending"); err == nil {
		stats.PendingWithdrawal = pending
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Dashboard",
		Data:    stats,
	})
}

// GetUser returns one member by object id or public member id
func (ac *AdminController) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	identifier := c.Param("id")
	var user *models.User
	var err error
	if objID, hexErr := primitive.ObjectIDFromHex(identifier); hexErr == nil {
		user, err = ac.repo.GetByID(ctx, objID)
	} else {
		user, err = ac.repo.GetByMemberID(ctx, identifier)
	}
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	user.Password = ""
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User",
		Data:    user,
	})
}

// DeactivateUser marks a member inactive without touching the tree. Inactive
// members keep their slot but stop qualifying as placement sponsors.
func (ac *AdminController) DeactivateUser(c echo.Context) error {
	return ac.setActive(c, false)
}

// ReactivateUser marks a member active again
func (ac *AdminController) ReactivateUser(c echo.Context) error {
	return ac.setActive(c, true)
}

func (ac *AdminController) setActive(c echo.Context, active bool) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}
	if _, err := ac.repo.GetByID(ctx, userID); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if err := ac.repo.SetActive(ctx, userID, active); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update user",
		})
	}

	message := "User deactivated"
	if active {
		message = "User reactivated"
	}
	return c.JSON(http.StatusOK, models.Response{Status: http.StatusOK, Message: message})
}

// DeleteUser removes a member from the tree. The slot is freed, the member
// is deactivated, and each orphaned subtree is replanted under the removed
// member's parent with the balanced strategy so no downline is lost.
func (ac *AdminController) DeleteUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	adminID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	user, err := ac.repo.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if user.ParentID == nil {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "The tree root cannot be deleted",
		})
	}

	parentID, replanted, err := ac.placement.Remove(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to remove user from tree",
		})
	}

	if err := ac.repo.SetActive(ctx, user.ID, false); err != nil {
		c.Logger().Errorf("Failed to deactivate %s: %v", user.ID.Hex(), err)
	}

	ac.ledger.InsertAdminLog(ctx, &models.AdminLog{
		AdminID:      adminID,
		Action:       models.AdminActionDeleteUser,
		TargetUserID: &user.ID,
		Details:      fmt.Sprintf("removed from tree, %d subtree(s) replanted under %s", replanted, parentID.Hex()),
		CreatedAt:    time.Now(),
	})

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User removed from tree",
		Data: map[string]interface{}{
			"replantedSubtrees": replanted,
		},
	})
}
