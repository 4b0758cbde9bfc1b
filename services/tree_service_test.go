package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kutbulzaman/mlm_backend/models"
)

func TestSubtreeStatsCountsWholeSubtree(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	e := seedMember(t, env.repo, "e")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)
	attach(t, env.repo, b, e, models.PositionLeft)

	for _, inv := range []struct {
		member *models.User
		amount float64
	}{{root, 100}, {b, 250}, {e, 50}} {
		if err := env.repo.IncrementInvestment(ctx, inv.member.ID, inv.amount); err != nil {
			t.Fatalf("setting investment: %v", err)
		}
	}

	stats, err := env.tree.SubtreeStats(ctx, root.ID)
	if err != nil {
		t.Fatalf("computing stats: %v", err)
	}
	if stats.TeamSize != 4 {
		t.Errorf("teamSize = %d, want 4", stats.TeamSize)
	}
	if stats.TotalVolume != 400 {
		t.Errorf("totalVolume = %.2f, want 400", stats.TotalVolume)
	}

	// A leg walk sees only its own subtree.
	legStats, err := env.tree.SubtreeStats(ctx, b.ID)
	if err != nil {
		t.Fatalf("computing leg stats: %v", err)
	}
	if legStats.TeamSize != 2 || legStats.TotalVolume != 300 {
		t.Errorf("leg stats = %+v, want teamSize 2, volume 300", legStats)
	}
}

func TestSubtreeStatsStopsAtDepthBound(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	chain := buildChain(t, env.repo, 10)

	stats, err := env.tree.SubtreeStats(ctx, chain[0].ID)
	if err != nil {
		t.Fatalf("computing stats: %v", err)
	}
	// The walk covers the node plus seven levels below it, never the
	// full ten-deep chain.
	if stats.TeamSize != 8 {
		t.Errorf("teamSize = %d, want 8", stats.TeamSize)
	}
}

func TestSubtreeStatsDetectsCycle(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	a := seedMember(t, env.repo, "a")
	b := seedMember(t, env.repo, "b")
	attach(t, env.repo, a, b, models.PositionLeft)

	// Corrupt the structure: b points back at a.
	aID := a.ID
	if err := env.repo.SetChild(ctx, b.ID, models.PositionLeft, &aID); err != nil {
		t.Fatalf("corrupting tree: %v", err)
	}

	if _, err := env.tree.SubtreeStats(ctx, a.ID); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("got %v, want ErrCycleDetected", err)
	}
}

func TestIsBalanced(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)

	// Grow the left leg by three.
	prev := b
	for _, code := range []string{"d", "e", "f"} {
		next := seedMember(t, env.repo, code)
		attach(t, env.repo, prev, next, models.PositionLeft)
		prev = next
	}

	tests := []struct {
		name      string
		tolerance int
		want      bool
	}{
		{name: "within tolerance", tolerance: 3, want: true},
		{name: "outside tolerance", tolerance: 2, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.tree.IsBalanced(ctx, root.ID, tc.tolerance)
			if err != nil {
				t.Fatalf("checking balance: %v", err)
			}
			if got != tc.want {
				t.Errorf("balanced = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefreshTeamSizeExcludesSelf(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	chain := buildChain(t, env.repo, 4)

	if err := env.tree.RefreshTeamSize(ctx, chain[0].ID); err != nil {
		t.Fatalf("refreshing: %v", err)
	}
	got, err := env.repo.GetByID(ctx, chain[0].ID)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if got.TotalTeamSize != 3 {
		t.Errorf("totalTeamSize = %d, want 3", got.TotalTeamSize)
	}
}
