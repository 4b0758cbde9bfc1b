package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/controllers"
	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/routes"
	"github.com/kutbulzaman/mlm_backend/services"
	"github.com/kutbulzaman/mlm_backend/utils"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	mlmConfig, err := config.LoadMLMConfig()
	if err != nil {
		log.Fatalf("Invalid MLM configuration: %v", err)
	}

	// Connect to Redis
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories
	memberRepo := repositories.NewMongoMemberRepository(client)
	ledgerRepo := repositories.NewMongoLedgerRepository(client)

	ensureAdminAccount(memberRepo)

	// Initialize the engine services. The placement and commission engines
	// share one tree locker so a distribution never runs concurrently with
	// a move inside the same tree.
	locks := services.NewTreeLocker()
	treeService := services.NewTreeService(memberRepo, redisClient, mlmConfig.MaxDepth, mlmConfig.BalanceTolerance)
	capacityService := services.NewCapacityService(memberRepo, mlmConfig.MaxCapacity)
	placementService := services.NewPlacementService(memberRepo, ledgerRepo, treeService, capacityService, locks, mlmConfig.MaxDepth)
	commissionService := services.NewCommissionService(memberRepo, ledgerRepo, locks, mlmConfig.Rates, mlmConfig.MaxDepth)
	careerService := services.NewCareerService(memberRepo, ledgerRepo)

	// Initialize controllers
	authController := controllers.NewAuthController(memberRepo, placementService, careerService, redisClient, wsHub)
	referralController := controllers.NewReferralController(memberRepo, treeService, mlmConfig)
	walletController := controllers.NewWalletController(memberRepo, ledgerRepo, wsHub)
	membershipController := controllers.NewMembershipController(memberRepo, ledgerRepo, commissionService, careerService, wsHub)
	commissionController := controllers.NewCommissionController(memberRepo, ledgerRepo, commissionService, wsHub)
	placementController := controllers.NewPlacementController(memberRepo, ledgerRepo, placementService, treeService, capacityService, wsHub)
	adminController := controllers.NewAdminController(memberRepo, ledgerRepo, placementService, capacityService)

	// Create a new Echo instance
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	// Middleware
	rateLimiter := middleware.NewRateLimiter()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(middleware.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.ActivityTracker(client))

	routes.SetupRoutes(e, client, wsHub, authController, referralController, walletController, membershipController, commissionController, placementController, adminController)

	// Background jobs
	go middleware.CleanupBlacklist()
	go func() {
		for {
			middleware.MarkInactiveUsers(client, mlmConfig.InactiveThreshold)
			middleware.ExpireLapsedMemberships(client)
			time.Sleep(1 * time.Hour)
		}
	}()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

// ensureAdminAccount seeds the admin login from ADMIN_EMAIL/ADMIN_PASSWORD on
// first start. Admin accounts live outside the binary tree.
func ensureAdminAccount(repo repositories.MemberRepository) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("Warning: ADMIN_EMAIL/ADMIN_PASSWORD not set, no admin account seeded")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return
	} else if err != repositories.ErrNotFound {
		log.Printf("Admin account check failed: %v", err)
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}
	sequence, err := repo.NextMemberSequence(ctx)
	if err != nil {
		log.Printf("Failed to allocate admin member id: %v", err)
		return
	}
	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		log.Printf("Failed to generate admin referral code: %v", err)
		return
	}

	now := time.Now()
	admin := &models.User{
		ID:             primitive.NewObjectID(),
		MemberID:       utils.FormatMemberID(sequence),
		Email:          email,
		Password:       hashed,
		FullName:       "Administrator",
		Role:           "admin",
		ReferralCode:   referralCode,
		CareerLevelID:  1,
		MembershipType: models.MembershipFree,
		KYCStatus:      "approved",
		IsActive:       true,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(ctx, admin); err != nil {
		log.Printf("Failed to seed admin account: %v", err)
		return
	}
	log.Printf("Seeded admin account %s", admin.MemberID)
}
