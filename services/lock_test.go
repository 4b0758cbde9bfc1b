package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
)

func TestRootOfWalksToTreeRoot(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	chain := buildChain(t, env.repo, 5)

	rootID, err := rootOf(ctx, env.repo, chain[4].ID)
	if err != nil {
		t.Fatalf("resolving root: %v", err)
	}
	if rootID != chain[0].ID {
		t.Errorf("root = %s, want %s", rootID.Hex(), chain[0].ID.Hex())
	}
}

func TestRootOfDetectsParentCycle(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	a := seedMember(t, env.repo, "a")
	b := seedMember(t, env.repo, "b")
	attach(t, env.repo, a, b, models.PositionLeft)

	// Corrupt the parent chain: a claims b as its parent.
	bID := b.ID
	if err := env.repo.SetParent(ctx, a.ID, &bID, models.PositionLeft); err != nil {
		t.Fatalf("corrupting chain: %v", err)
	}

	if _, err := rootOf(ctx, env.repo, b.ID); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("got %v, want ErrCycleDetected", err)
	}
}

func TestTreeLockerSerializesSameRoot(t *testing.T) {
	locks := NewTreeLocker()
	rootID := primitive.NewObjectID()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(rootID)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}
