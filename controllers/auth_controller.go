// controllers/auth_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/services"
	"github.com/kutbulzaman/mlm_backend/utils"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

// AuthController handles registration, login and session management
type AuthController struct {
	repo          repositories.MemberRepository
	placement     *services.PlacementService
	career        *services.CareerService
	redis         *redis.Client
	hub           *websocket.Hub
	loginAttempts map[string]struct {
		count       int
		lastAttempt time.Time
	}
	loginAttemptsMu sync.RWMutex
}

// NewAuthController creates a new auth controller
func NewAuthController(repo repositories.MemberRepository, placement *services.PlacementService, career *services.CareerService, redisClient *redis.Client, hub *websocket.Hub) *AuthController {
	return &AuthController{
		repo:      repo,
		placement: placement,
		career:    career,
		redis:     redisClient,
		hub:       hub,
		loginAttempts: make(map[string]struct {
			count       int
			lastAttempt time.Time
		}),
	}
}

// Signup registers a member, places them in the binary tree under their
// sponsor and returns a session token. The first account ever created
// becomes the tree root and needs no referral code.
func (ac *AuthController) Signup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.SignupRequest
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

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid phone number format",
		})
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	if _, err := ac.repo.GetByEmail(ctx, email); err == nil {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Email is already registered",
		})
	} else if err != repositories.ErrNotFound {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check existing account",
		})
	}

	memberCount, err := ac.repo.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check member registry",
		})
	}

	if req.Strategy != "" && !models.ValidStrategy(req.Strategy) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown placement strategy",
		})
	}

	var sponsor *models.User
	if req.ReferralCode == "" {
		if memberCount > 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Referral code is required",
			})
		}
	} else {
		sponsor, err = ac.repo.GetByReferralCode(ctx, utils.SanitizeInput(req.ReferralCode))
		if err != nil {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Referral code not found",
			})
		}
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to secure password",
		})
	}

	sequence, err := ac.repo.NextMemberSequence(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to allocate member id",
		})
	}

	referralCode, err := ac.uniqueReferralCode(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	now := time.Now()
	user := &models.User{
		ID:             primitive.NewObjectID(),
		MemberID:       utils.FormatMemberID(sequence),
		Email:          email,
		Password:       hashedPassword,
		FullName:       utils.SanitizeInput(req.FullName),
		Phone:          phone,
		Role:           "user",
		ReferralCode:   referralCode,
		CareerLevelID:  1,
		MembershipType: models.MembershipFree,
		KYCStatus:      "pending",
		IsActive:       true,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if sponsor != nil {
		sponsorID := sponsor.ID
		user.SponsorID = &sponsorID
	}

	if err := ac.repo.Create(ctx, user); err != nil {
		if err == repositories.ErrDuplicateKey {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Email is already registered",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create account",
		})
	}

	if sponsor != nil {
		strategy := req.Strategy
		if strategy == "" {
			strategy = models.StrategyBalanced
		}

		result, err := ac.placement.Place(ctx, models.PlacementRequest{
			NewMemberID: user.ID,
			SponsorID:   sponsor.ID,
			Strategy:    strategy,
		}, "registration")
		if err != nil {
			if errors.Is(err, services.ErrCapacityExceeded) {
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Message: "Member capacity reached, registration is closed",
				})
			}
			// The account exists but holds no slot; an admin can place it
			// manually.
			log.Printf("Placement failed for %s: %v", user.MemberID, err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Account created but placement failed, contact support",
			})
		}

		if err := ac.repo.IncrementDirectReferrals(ctx, sponsor.ID); err != nil {
			log.Printf("Failed to count direct referral for %s: %v", sponsor.MemberID, err)
		}
		if _, _, err := ac.career.EvaluatePromotion(ctx, sponsor.ID); err != nil {
			log.Printf("Career evaluation failed for %s: %v", sponsor.MemberID, err)
		}
		// Best effort; the parent may simply not be connected.
		ac.hub.NotifyPlacement(result.ParentID, map[string]interface{}{
			"memberId": user.MemberID,
			"position": result.Position,
			"depth":    result.Depth,
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Account created but token generation failed",
		})
	}

	user.Password = ""
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Registration successful",
		Data: models.LoginResponse{
			Token:        token,
			RefreshToken: refreshToken,
			User:         *user,
		},
	})
}

// Login authenticates by email or member id
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if req.Email == "" && req.MemberID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Either email or member id is required",
		})
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.MemberID
	}

	ac.loginAttemptsMu.RLock()
	attempts, exists := ac.loginAttempts[identifier]
	ac.loginAttemptsMu.RUnlock()
	if exists && attempts.count >= 5 && time.Since(attempts.lastAttempt) < 30*time.Minute {
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "Too many failed login attempts. Please try again later.",
		})
	}

	var user *models.User
	var err error
	if req.Email != "" {
		email, sanitizeErr := utils.SanitizeEmail(req.Email)
		if sanitizeErr != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid email format",
			})
		}
		user, err = ac.repo.GetByEmail(ctx, email)
	} else {
		user, err = ac.repo.GetByMemberID(ctx, utils.SanitizeInput(req.MemberID))
	}
	if err != nil {
		if err == repositories.ErrNotFound {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Invalid credentials",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to find user",
		})
	}

	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		ac.loginAttemptsMu.Lock()
		record := ac.loginAttempts[identifier]
		record.count++
		record.lastAttempt = time.Now()
		ac.loginAttempts[identifier] = record
		ac.loginAttemptsMu.Unlock()

		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid credentials",
		})
	}

	ac.loginAttemptsMu.Lock()
	delete(ac.loginAttempts, identifier)
	ac.loginAttemptsMu.Unlock()

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	response := models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	}
	response.User.Password = ""

	if req.RememberMe {
		rememberToken, err := utils.GenerateRememberMeToken()
		if err == nil {
			err = utils.StoreRememberedCredentials(ac.redis, rememberToken, utils.RememberedCredentials{
				Email:     user.Email,
				UserType:  user.Role,
				UserID:    user.ID.Hex(),
				ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
			}, 30*24*time.Hour)
		}
		if err != nil {
			log.Printf("Failed to store remember-me token for %s: %v", user.MemberID, err)
		} else {
			response.RememberToken = rememberToken
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data:    response,
	})
}

// Logout invalidates the current token and any remember-me token
func (ac *AuthController) Logout(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		// Blacklist until the token would have expired anyway.
		middleware.BlacklistToken(authHeader[7:], time.Now().Add(72*time.Hour))
	}

	if rememberToken := c.QueryParam("rememberToken"); rememberToken != "" {
		if err := utils.RemoveRememberedCredentials(ac.redis, rememberToken); err != nil {
			log.Printf("Failed to remove remember-me token: %v", err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Logged out",
	})
}

// GetRememberedCredentials exchanges a remember-me token for a fresh session.
// The stored credentials were written at login with rememberMe set.
func (ac *AuthController) GetRememberedCredentials(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req struct {
		RememberToken string `json:"rememberToken" validate:"required"`
	}
	if err := c.Bind(&req); err != nil || req.RememberToken == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Remember token is required",
		})
	}

	credentials, err := utils.RetrieveRememberedCredentials(ac.redis, req.RememberToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Remember token is invalid or expired",
		})
	}

	userID, err := primitive.ObjectIDFromHex(credentials.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Remember token is invalid or expired",
		})
	}
	user, err := ac.repo.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Account is no longer available",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	user.Password = ""
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: models.LoginResponse{
			Token:         token,
			RefreshToken:  refreshToken,
			RememberToken: req.RememberToken,
			User:          *user,
		},
	})
}

// ValidateSession lets the frontend check whether a token is still usable
func (ac *AuthController) ValidateSession(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "No valid authorization header",
		})
	}

	userID, err := ac.userIDFromToken(authHeader[7:])
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or expired token",
		})
	}

	user, err := ac.repo.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Session is no longer valid",
		})
	}

	user.Password = ""
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Session is valid",
		Data:    user,
	})
}

func (ac *AuthController) userIDFromToken(tokenString string) (primitive.ObjectID, error) {
	if middleware.IsTokenBlacklisted(tokenString) {
		return primitive.NilObjectID, fmt.Errorf("token invalidated")
	}

	token, err := jwt.ParseWithClaims(tokenString, &middleware.JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(middleware.GetJWTSecret()), nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}

	claims, ok := token.Claims.(*middleware.JwtCustomClaims)
	if !ok || !token.Valid {
		return primitive.NilObjectID, errors.New("invalid token")
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

// uniqueReferralCode retries generation on the unlikely collision
func (ac *AuthController) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := utils.GenerateReferralCode()
		if err != nil {
			return "", err
		}
		if _, err := ac.repo.GetByReferralCode(ctx, code); err == repositories.ErrNotFound {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique referral code")
}
