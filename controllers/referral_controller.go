// controllers/referral_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/services"
	"github.com/kutbulzaman/mlm_backend/utils"
)

// ReferralController serves the member's referral link, QR code and team
// overview
type ReferralController struct {
	repo repositories.MemberRepository
	tree *services.TreeService
	cfg  config.MLMConfig
}

// NewReferralController creates a new referral controller
func NewReferralController(repo repositories.MemberRepository, tree *services.TreeService, cfg config.MLMConfig) *ReferralController {
	return &ReferralController{repo: repo, tree: tree, cfg: cfg}
}

// GetReferralData returns the referral link, QR code and team counters
func (rc *ReferralController) GetReferralData(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := rc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	link := utils.ReferralLink(rc.cfg.ReferralBaseURL, user.ReferralCode)
	data := models.ReferralData{
		ReferralCode:    user.ReferralCode,
		ReferralLink:    link,
		DirectReferrals: user.DirectReferrals,
		TotalTeamSize:   user.TotalTeamSize,
	}

	qrCode, err := utils.GenerateQRCode(link)
	if err != nil {
		c.Logger().Errorf("QR generation failed for %s: %v", user.MemberID, err)
	} else {
		data.QRCode = qrCode
	}

	left, right, err := rc.tree.LegStats(ctx, user)
	if err != nil {
		c.Logger().Errorf("Leg stats failed for %s: %v", user.MemberID, err)
	} else {
		if left != nil {
			data.LeftTeamSize = left.TeamSize
		}
		if right != nil {
			data.RightTeamSize = right.TeamSize
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral data",
		Data:    data,
	})
}

// GetReferralQRCode returns only the QR code image for the referral link
func (rc *ReferralController) GetReferralQRCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := rc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	link := utils.ReferralLink(rc.cfg.ReferralBaseURL, user.ReferralCode)
	qrCode, err := utils.GenerateQRCode(link)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral QR code",
		Data: map[string]string{
			"referralLink": link,
			"qrCode":       qrCode,
		},
	})
}

// GetDirectReferrals lists the members the caller personally sponsored
func (rc *ReferralController) GetDirectReferrals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := rc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	referrals, err := rc.repo.ListBySponsor(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load referrals",
		})
	}

	summaries := make([]map[string]interface{}, 0, len(referrals))
	for _, ref := range referrals {
		summaries = append(summaries, map[string]interface{}{
			"memberId":      ref.MemberID,
			"fullName":      ref.FullName,
			"careerLevelId": ref.CareerLevelID,
			"isActive":      ref.IsActive,
			"joinedAt":      ref.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Direct referrals",
		Data:    summaries,
	})
}

func (rc *ReferralController) currentUser(ctx context.Context, c echo.Context) (*models.User, error) {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return nil, err
	}
	return rc.repo.GetByID(ctx, userID)
}
