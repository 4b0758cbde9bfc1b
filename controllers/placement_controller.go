// controllers/placement_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
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

// PlacementController exposes the binary tree operations: admin placement
// tools plus the member-facing tree views
type PlacementController struct {
	repo      repositories.MemberRepository
	ledger    repositories.LedgerRepository
	placement *services.PlacementService
	tree      *services.TreeService
	capacity  *services.CapacityService
	hub       *websocket.Hub
}

// NewPlacementController creates a new placement controller
func NewPlacementController(repo repositories.MemberRepository, ledger repositories.LedgerRepository, placement *services.PlacementService, tree *services.TreeService, capacity *services.CapacityService, hub *websocket.Hub) *PlacementController {
	return &PlacementController{
		repo:      repo,
		ledger:    ledger,
		placement: placement,
		tree:      tree,
		capacity:  capacity,
		hub:       hub,
	}
}

// PlaceUser places an unplaced member into an explicit slot (admin only)
func (pc *PlacementController) PlaceUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.AdminPlacementRequest
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

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user id",
		})
	}
	parentID, err := primitive.ObjectIDFromHex(req.ParentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid parent id",
		})
	}

	result, err := pc.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: userID,
		SponsorID:   parentID,
		Strategy:    models.StrategyManual,
		ParentID:    &parentID,
		Position:    req.Position,
	}, middleware.GetUserIDFromToken(c))
	if err != nil {
		return pc.placementError(c, err)
	}

	pc.logAdminAction(ctx, c, models.AdminActionPlacement, &userID,
		fmt.Sprintf("placed under %s at %s", req.ParentID, req.Position))
	pc.hub.NotifyPlacement(result.ParentID, map[string]interface{}{
		"position": result.Position,
		"depth":    result.Depth,
	})

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Member placed",
		Data:    result,
	})
}

// MoveUser reparents a member, carrying their subtree along (admin only)
func (pc *PlacementController) MoveUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.AdminMoveRequest
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

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user id",
		})
	}
	newParentID, err := primitive.ObjectIDFromHex(req.NewParentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid parent id",
		})
	}

	if err := pc.placement.Move(ctx, userID, newParentID, req.NewPosition); err != nil {
		return pc.placementError(c, err)
	}

	pc.logAdminAction(ctx, c, models.AdminActionMoveUser, &userID,
		fmt.Sprintf("moved under %s at %s", req.NewParentID, req.NewPosition))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Member moved",
	})
}

// TestPlacement resolves where a placement would land without writing
// anything (admin dry run)
func (pc *PlacementController) TestPlacement(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.TestPlacementRequest
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

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user id",
		})
	}
	sponsorID, err := primitive.ObjectIDFromHex(req.SponsorID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid sponsor id",
		})
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = models.StrategyBalanced
	}

	result, err := pc.placement.FindPosition(ctx, models.PlacementRequest{
		NewMemberID: userID,
		SponsorID:   sponsorID,
		Strategy:    strategy,
		MaxDepth:    req.MaxDepth,
	})
	if err != nil {
		return pc.placementError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Placement resolved",
		Data:    result,
	})
}

// CheckCapacity reports how full the network is
func (pc *PlacementController) CheckCapacity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	status, err := pc.capacity.CheckCapacity(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check capacity",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Capacity status",
		Data:    status,
	})
}

// BinaryAnalysis inspects a member's legs, balance and the slot the next
// balanced placement would take (admin only)
func (pc *PlacementController) BinaryAnalysis(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user id",
		})
	}

	analysis, err := pc.buildAnalysis(ctx, userID)
	if err != nil {
		return pc.placementError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Binary analysis",
		Data:    analysis,
	})
}

// MyTree returns the calling member's own leg statistics
func (pc *PlacementController) MyTree(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	analysis, err := pc.buildAnalysis(ctx, userID)
	if err != nil {
		return pc.placementError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Tree statistics",
		Data:    analysis,
	})
}

func (pc *PlacementController) buildAnalysis(ctx context.Context, userID primitive.ObjectID) (*models.BinaryAnalysis, error) {
	user, err := pc.repo.GetByID(ctx, userID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, services.ErrNodeNotFound
		}
		return nil, err
	}

	left, right, err := pc.tree.LegStats(ctx, user)
	if err != nil {
		return nil, err
	}
	balanced, err := pc.tree.IsBalanced(ctx, userID, pc.tree.DefaultTolerance())
	if err != nil {
		return nil, err
	}

	level := models.LevelByID(user.CareerLevelID)
	analysis := &models.BinaryAnalysis{
		UserID:      user.ID.Hex(),
		MemberID:    user.MemberID,
		CareerLevel: level.Name,
		LeftLeg:     left,
		RightLeg:    right,
		IsBalanced:  balanced,
		Recommended: models.StrategyBalanced,
	}
	if !balanced {
		analysis.Recommended = models.StrategySizeBased
	}

	// Where the next balanced placement under this member would land.
	next, err := pc.placement.FindPosition(ctx, models.PlacementRequest{
		NewMemberID: primitive.NewObjectID(),
		SponsorID:   userID,
		Strategy:    models.StrategyBalanced,
	})
	if err == nil {
		analysis.NextPlacement = next
	}

	return analysis, nil
}

func (pc *PlacementController) logAdminAction(ctx context.Context, c echo.Context, action string, target *primitive.ObjectID, details string) {
	adminID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return
	}
	entry := &models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		TargetUserID: target,
		Details:      details,
	}
	if err := pc.ledger.InsertAdminLog(ctx, entry); err != nil {
		c.Logger().Errorf("Failed to write admin log: %v", err)
	}
}

// placementError maps engine errors onto HTTP responses
func (pc *PlacementController) placementError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Placement operation failed"

	switch {
	case errors.Is(err, services.ErrSponsorNotFound), errors.Is(err, services.ErrNodeNotFound):
		status, message = http.StatusNotFound, "Member not found"
	case errors.Is(err, services.ErrAlreadyPlaced):
		status, message = http.StatusConflict, "Member already occupies a tree slot"
	case errors.Is(err, services.ErrSlotOccupied):
		status, message = http.StatusConflict, "Requested slot is already occupied"
	case errors.Is(err, services.ErrInvalidStrategy):
		status, message = http.StatusBadRequest, "Unknown placement strategy"
	case errors.Is(err, services.ErrDepthExceeded):
		status, message = http.StatusUnprocessableEntity, "No free slot within the depth limit"
	case errors.Is(err, services.ErrCapacityExceeded):
		status, message = http.StatusForbidden, "Member capacity reached"
	case errors.Is(err, services.ErrCycleDetected):
		status, message = http.StatusUnprocessableEntity, "Operation would corrupt the tree structure"
	}

	if status == http.StatusInternalServerError {
		c.Logger().Errorf("Placement operation failed: %v", err)
	}
	return c.JSON(status, models.Response{Status: status, Message: message})
}
