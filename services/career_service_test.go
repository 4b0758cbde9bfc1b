package services

import (
	"context"
	"testing"
)

func TestEvaluatePromotion(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	member := seedMember(t, env.repo, "climber")

	// Below every threshold: stays at the entry tier.
	level, promoted, err := env.career.EvaluatePromotion(ctx, member.ID)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if promoted || level.ID != 1 {
		t.Fatalf("fresh member: promoted=%v level=%d, want no promotion at tier 1", promoted, level.ID)
	}

	// Meet the tier 2 requirements: $500 invested, two direct referrals.
	if err := env.repo.IncrementInvestment(ctx, member.ID, 500); err != nil {
		t.Fatalf("setting investment: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := env.repo.IncrementDirectReferrals(ctx, member.ID); err != nil {
			t.Fatalf("counting referral: %v", err)
		}
	}

	level, promoted, err = env.career.EvaluatePromotion(ctx, member.ID)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if !promoted || level.ID != 2 {
		t.Fatalf("promoted=%v level=%d, want promotion to tier 2", promoted, level.ID)
	}

	after, err := env.repo.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("reloading member: %v", err)
	}
	if after.CareerLevelID != 2 {
		t.Errorf("stored careerLevelId = %d, want 2", after.CareerLevelID)
	}
	if after.Wallet.LeadershipBonus != level.Bonus {
		t.Errorf("leadershipBonus = %.2f, want %.2f", after.Wallet.LeadershipBonus, level.Bonus)
	}

	// Re-evaluating the same stats is a no-op, no double bonus.
	_, promoted, err = env.career.EvaluatePromotion(ctx, member.ID)
	if err != nil {
		t.Fatalf("re-evaluating: %v", err)
	}
	if promoted {
		t.Error("same stats promoted twice")
	}
	again, err := env.repo.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("reloading member: %v", err)
	}
	if again.Wallet.LeadershipBonus != level.Bonus {
		t.Errorf("bonus paid twice: %.2f", again.Wallet.LeadershipBonus)
	}
}

func TestEvaluatePromotionNeverDemotes(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	member := seedMember(t, env.repo, "veteran")
	if err := env.repo.SetCareerLevel(ctx, member.ID, 4); err != nil {
		t.Fatalf("setting level: %v", err)
	}

	level, promoted, err := env.career.EvaluatePromotion(ctx, member.ID)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if promoted || level.ID != 4 {
		t.Errorf("promoted=%v level=%d, want tier 4 kept", promoted, level.ID)
	}
}
