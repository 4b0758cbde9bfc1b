package services

import (
	"context"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
)

type testEnv struct {
	repo       *repositories.MemoryMemberRepository
	ledger     *repositories.MemoryLedgerRepository
	tree       *TreeService
	capacity   *CapacityService
	placement  *PlacementService
	commission *CommissionService
	career     *CareerService
}

func newTestEnv(maxCapacity int64) *testEnv {
	repo := repositories.NewMemoryMemberRepository()
	ledger := repositories.NewMemoryLedgerRepository()
	locks := NewTreeLocker()
	cfg := config.DefaultMLMConfig()

	tree := NewTreeService(repo, nil, cfg.MaxDepth, cfg.BalanceTolerance)
	capacity := NewCapacityService(repo, maxCapacity)
	placement := NewPlacementService(repo, ledger, tree, capacity, locks, cfg.MaxDepth)
	commission := NewCommissionService(repo, ledger, locks, cfg.Rates, cfg.MaxDepth)
	career := NewCareerService(repo, ledger)

	return &testEnv{
		repo:       repo,
		ledger:     ledger,
		tree:       tree,
		capacity:   capacity,
		placement:  placement,
		commission: commission,
		career:     career,
	}
}

func seedMember(t *testing.T, repo *repositories.MemoryMemberRepository, code string) *models.User {
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
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding member %s: %v", code, err)
	}
	return user
}

// attach links child under parent at the given slot directly, bypassing the
// placement engine, for tests that need a prebuilt tree shape.
func attach(t *testing.T, repo *repositories.MemoryMemberRepository, parent, child *models.User, position string) {
	t.Helper()

	ctx := context.Background()
	childID := child.ID
	if err := repo.SetChild(ctx, parent.ID, position, &childID); err != nil {
		t.Fatalf("attaching %s under %s: %v", child.MemberID, parent.MemberID, err)
	}
	parentID := parent.ID
	if err := repo.SetParent(ctx, child.ID, &parentID, position); err != nil {
		t.Fatalf("linking parent of %s: %v", child.MemberID, err)
	}
}

// buildChain seeds a straight left-leg chain of the given length and returns
// it root first.
func buildChain(t *testing.T, repo *repositories.MemoryMemberRepository, length int) []*models.User {
	t.Helper()

	chain := make([]*models.User, length)
	for i := 0; i < length; i++ {
		chain[i] = seedMember(t, repo, fmt.Sprintf("chain%02d", i))
		if i > 0 {
			attach(t, repo, chain[i-1], chain[i], models.PositionLeft)
		}
	}
	return chain
}
