package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
)

// buildUpline seeds source <- parent <- grandparent, with the direct parent
// doubling as sponsor, and returns them nearest first.
func buildUpline(t *testing.T, env *testEnv) (source, parent, grandparent *models.User) {
	t.Helper()

	grandparent = seedMember(t, env.repo, "grandparent")
	parent = seedMember(t, env.repo, "parent")

	sponsorID := parent.ID
	source = &models.User{
		ID:            primitive.NewObjectID(),
		MemberID:      "source",
		Email:         "source@example.com",
		FullName:      "source",
		Role:          "user",
		ReferralCode:  "source",
		SponsorID:     &sponsorID,
		CareerLevelID: 1,
		IsActive:      true,
	}
	if err := env.repo.Create(context.Background(), source); err != nil {
		t.Fatalf("seeding source: %v", err)
	}

	attach(t, env.repo, grandparent, parent, models.PositionLeft)
	attach(t, env.repo, parent, source, models.PositionLeft)
	return source, parent, grandparent
}

func TestDistributeSplitsAndConserves(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()
	source, parent, grandparent := buildUpline(t, env)

	dist, err := env.commission.Distribute(ctx, models.CommissionEvent{
		EventID:        "evt-100",
		SourceMemberID: source.ID,
		Amount:         100,
		EventType:      models.EventTypeEntry,
	})
	if err != nil {
		t.Fatalf("distributing: %v", err)
	}

	if dist.SponsorBonus != 10 || dist.CareerBonus != 25 || dist.PassiveIncome != 5 {
		t.Errorf("split = %.2f/%.2f/%.2f, want 10/25/5", dist.SponsorBonus, dist.CareerBonus, dist.PassiveIncome)
	}
	if dist.Status != models.DistributionStatusCommitted {
		t.Errorf("status = %s, want committed", dist.Status)
	}

	// Both ancestors sit at tier 1 (2% career rate, no passive), so each
	// career share is 25 * 0.02 = 0.50 and everything unclaimed lands in
	// the system fund.
	var credited float64
	for _, r := range dist.Recipients {
		credited += r.Amount
	}
	if got := credited + dist.SystemFund; math.Abs(got-dist.TotalAmount) > 0.009 {
		t.Errorf("credits %.2f + systemFund %.2f != total %.2f", credited, dist.SystemFund, dist.TotalAmount)
	}
	if dist.SystemFund != 89 {
		t.Errorf("systemFund = %.2f, want 89.00", dist.SystemFund)
	}

	parentAfter, err := env.repo.GetByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("reloading parent: %v", err)
	}
	// Direct upline collects the sponsor bonus plus its own career share.
	if parentAfter.Wallet.SponsorBonus != 10 {
		t.Errorf("parent sponsorBonus = %.2f, want 10", parentAfter.Wallet.SponsorBonus)
	}
	if parentAfter.Wallet.CareerBonus != 0.5 {
		t.Errorf("parent careerBonus = %.2f, want 0.50", parentAfter.Wallet.CareerBonus)
	}
	if parentAfter.Wallet.Balance != 10.5 {
		t.Errorf("parent balance = %.2f, want 10.50", parentAfter.Wallet.Balance)
	}

	grandAfter, err := env.repo.GetByID(ctx, grandparent.ID)
	if err != nil {
		t.Fatalf("reloading grandparent: %v", err)
	}
	if grandAfter.Wallet.CareerBonus != 0.5 || grandAfter.Wallet.SponsorBonus != 0 {
		t.Errorf("grandparent wallet = %+v, want only 0.50 career", grandAfter.Wallet)
	}
}

func TestDistributeIsIdempotent(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()
	source, parent, _ := buildUpline(t, env)

	event := models.CommissionEvent{
		EventID:        "evt-once",
		SourceMemberID: source.ID,
		Amount:         100,
		EventType:      models.EventTypeMonthly,
	}
	if _, err := env.commission.Distribute(ctx, event); err != nil {
		t.Fatalf("first distribution: %v", err)
	}

	before, err := env.repo.GetByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("reloading parent: %v", err)
	}

	if _, err := env.commission.Distribute(ctx, event); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("retry: got %v, want ErrDuplicateEvent", err)
	}

	after, err := env.repo.GetByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("reloading parent: %v", err)
	}
	if after.Wallet.Balance != before.Wallet.Balance {
		t.Errorf("retry moved the wallet: %.2f -> %.2f", before.Wallet.Balance, after.Wallet.Balance)
	}
}

func TestDistributeRootSourceGoesToSystemFund(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()
	root := seedMember(t, env.repo, "root")

	dist, err := env.commission.Distribute(ctx, models.CommissionEvent{
		EventID:        "evt-root",
		SourceMemberID: root.ID,
		Amount:         200,
		EventType:      models.EventTypeYearly,
	})
	if err != nil {
		t.Fatalf("distributing: %v", err)
	}
	if len(dist.Recipients) != 0 {
		t.Errorf("root event produced %d recipients, want 0", len(dist.Recipients))
	}
	if dist.SystemFund != 200 {
		t.Errorf("systemFund = %.2f, want full 200", dist.SystemFund)
	}
}

func TestDistributePassiveShareClampedToPool(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()
	source, parent, grandparent := buildUpline(t, env)

	// Tier 7 carries a 4% passive rate; two such ancestors want 4 + 4
	// against a 5-dollar pool, so the second share clamps to the remainder.
	for _, id := range []primitive.ObjectID{parent.ID, grandparent.ID} {
		if err := env.repo.SetCareerLevel(ctx, id, 7); err != nil {
			t.Fatalf("setting career level: %v", err)
		}
	}

	dist, err := env.commission.Distribute(ctx, models.CommissionEvent{
		EventID:        "evt-clamp",
		SourceMemberID: source.ID,
		Amount:         100,
		EventType:      models.EventTypeProductSale,
	})
	if err != nil {
		t.Fatalf("distributing: %v", err)
	}

	var passive []float64
	for _, r := range dist.Recipients {
		if r.Role == models.RecipientRolePassive {
			passive = append(passive, r.Amount)
		}
	}
	if len(passive) != 2 || passive[0] != 4 || passive[1] != 1 {
		t.Fatalf("passive shares = %v, want [4 1]", passive)
	}

	var credited float64
	for _, r := range dist.Recipients {
		credited += r.Amount
	}
	if got := credited + dist.SystemFund; math.Abs(got-100) > 0.009 {
		t.Errorf("credits %.2f + systemFund %.2f != 100", credited, dist.SystemFund)
	}
}

func TestDistributeRejectsBadInput(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()
	source := seedMember(t, env.repo, "source")

	tests := []struct {
		name  string
		event models.CommissionEvent
		want  error
	}{
		{
			name:  "zero amount",
			event: models.CommissionEvent{EventID: "evt-zero", SourceMemberID: source.ID, Amount: 0},
			want:  ErrInvalidAmount,
		},
		{
			name:  "negative amount",
			event: models.CommissionEvent{EventID: "evt-neg", SourceMemberID: source.ID, Amount: -50},
			want:  ErrInvalidAmount,
		},
		{
			name:  "unknown source",
			event: models.CommissionEvent{EventID: "evt-ghost", SourceMemberID: primitive.NewObjectID(), Amount: 100},
			want:  ErrSourceMemberNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.commission.Distribute(ctx, tc.event); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

// failingWalletRepo wraps the in-memory repository and fails the credit for
// one chosen member, to exercise the rollback path.
type failingWalletRepo struct {
	repositories.MemberRepository
	failFor primitive.ObjectID
}

func (r *failingWalletRepo) IncrementWallet(ctx context.Context, id primitive.ObjectID, field string, amount float64) error {
	if id == r.failFor && amount > 0 {
		return fmt.Errorf("simulated wallet failure")
	}
	return r.MemberRepository.IncrementWallet(ctx, id, field, amount)
}

func TestDistributeRollsBackOnPartialFailure(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()
	source, parent, grandparent := buildUpline(t, env)

	// Fail on the grandparent's career credit, after the parent has already
	// received sponsor and career money.
	failing := &failingWalletRepo{MemberRepository: env.repo, failFor: grandparent.ID}
	commission := NewCommissionService(failing, env.ledger, NewTreeLocker(), env.commission.rates, env.commission.maxDepth)

	_, err := commission.Distribute(ctx, models.CommissionEvent{
		EventID:        "evt-fail",
		SourceMemberID: source.ID,
		Amount:         100,
		EventType:      models.EventTypeEntry,
	})
	if err == nil {
		t.Fatal("expected the distribution to fail")
	}

	parentAfter, err := env.repo.GetByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("reloading parent: %v", err)
	}
	if parentAfter.Wallet.Balance != 0 || parentAfter.Wallet.SponsorBonus != 0 {
		t.Errorf("parent wallet not rolled back: %+v", parentAfter.Wallet)
	}

	// The pending record must be gone so the event can be retried.
	if _, err := env.ledger.GetDistributionByEventID(ctx, "evt-fail"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("pending distribution survived the rollback: %v", err)
	}

	// A retry against a healthy repository now succeeds.
	if _, err := env.commission.Distribute(ctx, models.CommissionEvent{
		EventID:        "evt-fail",
		SourceMemberID: source.ID,
		Amount:         100,
		EventType:      models.EventTypeEntry,
	}); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}
