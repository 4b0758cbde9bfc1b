package services

import (
	"context"
	"errors"
	"testing"
)

func TestCheckCapacity(t *testing.T) {
	env := newTestEnv(3)
	ctx := context.Background()

	seedMember(t, env.repo, "a")
	seedMember(t, env.repo, "b")

	status, err := env.capacity.CheckCapacity(ctx)
	if err != nil {
		t.Fatalf("checking capacity: %v", err)
	}
	if !status.CanAddUser || status.CurrentCount != 2 || status.MaxCapacity != 3 {
		t.Errorf("status = %+v, want canAddUser with 2/3", status)
	}

	seedMember(t, env.repo, "c")

	status, err = env.capacity.CheckCapacity(ctx)
	if err != nil {
		t.Fatalf("checking capacity: %v", err)
	}
	if status.CanAddUser {
		t.Errorf("capacity reported open at %d/%d", status.CurrentCount, status.MaxCapacity)
	}
}

func TestEnsureCapacity(t *testing.T) {
	env := newTestEnv(1)
	ctx := context.Background()

	if err := env.capacity.EnsureCapacity(ctx); err != nil {
		t.Fatalf("empty registry: %v", err)
	}

	seedMember(t, env.repo, "a")
	if err := env.capacity.EnsureCapacity(ctx); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("got %v, want ErrCapacityExceeded", err)
	}
}
