package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/services"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// controllerEnv wires the controllers against in-memory repositories the same
// way main wires them against Mongo.
type controllerEnv struct {
	echo       *echo.Echo
	repo       *repositories.MemoryMemberRepository
	ledger     *repositories.MemoryLedgerRepository
	hub        *websocket.Hub
	placement  *services.PlacementService
	commission *services.CommissionService
	career     *services.CareerService
}

func newControllerEnv(t *testing.T) *controllerEnv {
	t.Helper()

	repo := repositories.NewMemoryMemberRepository()
	ledger := repositories.NewMemoryLedgerRepository()
	locks := services.NewTreeLocker()
	cfg := config.DefaultMLMConfig()

	tree := services.NewTreeService(repo, nil, cfg.MaxDepth, cfg.BalanceTolerance)
	capacity := services.NewCapacityService(repo, cfg.MaxCapacity)
	placement := services.NewPlacementService(repo, ledger, tree, capacity, locks, cfg.MaxDepth)
	commission := services.NewCommissionService(repo, ledger, locks, cfg.Rates, cfg.MaxDepth)
	career := services.NewCareerService(repo, ledger)

	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}

	return &controllerEnv{
		echo:       e,
		repo:       repo,
		ledger:     ledger,
		hub:        websocket.NewHub(),
		placement:  placement,
		commission: commission,
		career:     career,
	}
}

func (env *controllerEnv) seedUser(t *testing.T, code string) *models.User {
	t.Helper()

	user := &models.User{
		ID:             primitive.NewObjectID(),
		MemberID:       code,
		Email:          code + "@example.com",
		FullName:       code,
		Role:           "user",
		ReferralCode:   code,
		CareerLevelID:  1,
		MembershipType: models.MembershipFree,
		IsActive:       true,
	}
	if err := env.repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user %s: %v", code, err)
	}
	return user
}

func (env *controllerEnv) attach(t *testing.T, parent, child *models.User, position string) {
	t.Helper()

	ctx := context.Background()
	childID := child.ID
	if err := env.repo.SetChild(ctx, parent.ID, position, &childID); err != nil {
		t.Fatalf("attaching %s under %s: %v", child.MemberID, parent.MemberID, err)
	}
	parentID := parent.ID
	if err := env.repo.SetParent(ctx, child.ID, &parentID, position); err != nil {
		t.Fatalf("linking parent of %s: %v", child.MemberID, err)
	}
}

// jsonRequest builds an echo context for a JSON request. A non-empty userID
// plays the role of the JWT middleware's extracted identity.
func (env *controllerEnv) jsonRequest(t *testing.T, method, target string, body interface{}, userID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	if userID != "" {
		c.Set("userId", userID)
	}
	return c, rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()

	var resp models.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}
