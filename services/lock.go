// services/lock.go
package services

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/repositories"
)

// maxAncestorWalk caps any parent-chain walk independent of tree size so a
// corrupted structure cannot send us into an unbounded loop.
const maxAncestorWalk = 10000

// TreeLocker serializes mutations per tree region. Placements and
// distributions lock the topmost ancestor of the subtree they touch, so
// writes to unrelated trees proceed concurrently while two writes into the
// same tree are ordered.
type TreeLocker struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*sync.Mutex
}

// NewTreeLocker creates an empty lock table
func NewTreeLocker() *TreeLocker {
	return &TreeLocker{locks: make(map[primitive.ObjectID]*sync.Mutex)}
}

// Lock acquires the mutex for the given root and returns its release func
func (l *TreeLocker) Lock(rootID primitive.ObjectID) func() {
	l.mu.Lock()
	lock, ok := l.locks[rootID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[rootID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// rootOf walks the parent chain from id to the tree root. The walk tracks
// visited nodes and fails with ErrCycleDetected instead of looping forever.
func rootOf(ctx context.Context, repo repositories.MemberRepository, id primitive.ObjectID) (primitive.ObjectID, error) {
	visited := make(map[primitive.ObjectID]bool)
	current := id

	for i := 0; i < maxAncestorWalk; i++ {
		if visited[current] {
			return primitive.NilObjectID, ErrCycleDetected
		}
		visited[current] = true

		member, err := repo.GetByID(ctx, current)
		if err != nil {
			if err == repositories.ErrNotFound {
				return primitive.NilObjectID, ErrNodeNotFound
			}
			return primitive.NilObjectID, err
		}
		if member.ParentID == nil {
			return current, nil
		}
		current = *member.ParentID
	}
	return primitive.NilObjectID, ErrCycleDetected
}
