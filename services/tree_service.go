// services/tree_service.go
package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
)

const (
	subtreeCachePrefix = "mlm:subtree:"
	subtreeCacheTTL    = 5 * time.Minute
)

// TreeService computes subtree aggregates by traversal. Counts are always
// recomputed from the live tree; the Redis cache is an optimization that is
// invalidated on every tree-link mutation.
type TreeService struct {
	repo      repositories.MemberRepository
	redis     *redis.Client
	maxDepth  int
	tolerance int
}

// NewTreeService creates a tree walker. redisClient may be nil, which
// disables caching.
func NewTreeService(repo repositories.MemberRepository, redisClient *redis.Client, maxDepth, tolerance int) *TreeService {
	return &TreeService{
		repo:      repo,
		redis:     redisClient,
		maxDepth:  maxDepth,
		tolerance: tolerance,
	}
}

// SubtreeStats returns the member count and cumulative invested volume of
// the subtree rooted at nodeID (the node itself included). The walk visits
// at most maxDepth levels below the node and tracks visited ids so a
// corrupted structure fails with ErrCycleDetected instead of looping.
func (s *TreeService) SubtreeStats(ctx context.Context, nodeID primitive.ObjectID) (*models.SubtreeStats, error) {
	if stats := s.cachedStats(ctx, nodeID); stats != nil {
		return stats, nil
	}

	stats := &models.SubtreeStats{}
	visited := make(map[primitive.ObjectID]bool)

	type queued struct {
		id    primitive.ObjectID
		depth int
	}
	queue := []queued{{id: nodeID, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.id] {
			return nil, ErrCycleDetected
		}
		visited[item.id] = true

		node, err := s.repo.GetByID(ctx, item.id)
		if err != nil {
			if err == repositories.ErrNotFound {
				if item.id == nodeID {
					return nil, ErrNodeNotFound
				}
				// Dangling child link; skip rather than fail the whole walk.
				continue
			}
			return nil, err
		}

		stats.TeamSize++
		stats.TotalVolume += node.TotalInvestment

		if item.depth >= s.maxDepth {
			continue
		}
		if node.LeftChild != nil {
			queue = append(queue, queued{id: *node.LeftChild, depth: item.depth + 1})
		}
		if node.RightChild != nil {
			queue = append(queue, queued{id: *node.RightChild, depth: item.depth + 1})
		}
	}

	s.storeStats(ctx, nodeID, stats)
	return stats, nil
}

// LegStats returns the stats of both child subtrees of the given member.
// A nil result for a leg means the slot is empty.
func (s *TreeService) LegStats(ctx context.Context, node *models.User) (*models.SubtreeStats, *models.SubtreeStats, error) {
	var left, right *models.SubtreeStats
	var err error

	if node.LeftChild != nil {
		left, err = s.SubtreeStats(ctx, *node.LeftChild)
		if err != nil {
			return nil, nil, err
		}
	}
	if node.RightChild != nil {
		right, err = s.SubtreeStats(ctx, *node.RightChild)
		if err != nil {
			return nil, nil, err
		}
	}
	return left, right, nil
}

// IsBalanced reports whether the left/right team sizes differ by no more
// than the tolerance. Informational only; it never triggers corrective moves.
func (s *TreeService) IsBalanced(ctx context.Context, nodeID primitive.ObjectID, tolerance int) (bool, error) {
	node, err := s.repo.GetByID(ctx, nodeID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return false, ErrNodeNotFound
		}
		return false, err
	}

	left, right, err := s.LegStats(ctx, node)
	if err != nil {
		return false, err
	}

	leftSize, rightSize := 0, 0
	if left != nil {
		leftSize = left.TeamSize
	}
	if right != nil {
		rightSize = right.TeamSize
	}

	diff := leftSize - rightSize
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance, nil
}

// DefaultTolerance returns the configured balance tolerance
func (s *TreeService) DefaultTolerance() int {
	return s.tolerance
}

// RefreshTeamSize recomputes and stores a member's cached totalTeamSize
// (descendants only, the member itself excluded)
func (s *TreeService) RefreshTeamSize(ctx context.Context, nodeID primitive.ObjectID) error {
	stats, err := s.SubtreeStats(ctx, nodeID)
	if err != nil {
		return err
	}
	return s.repo.SetTeamSize(ctx, nodeID, stats.TeamSize-1)
}

// InvalidatePath drops cached stats for every ancestor of the given node,
// the node included. Called after any tree-link mutation.
func (s *TreeService) InvalidatePath(ctx context.Context, nodeID primitive.ObjectID) {
	if s.redis == nil {
		return
	}

	visited := make(map[primitive.ObjectID]bool)
	current := nodeID
	for i := 0; i < maxAncestorWalk; i++ {
		if visited[current] {
			return
		}
		visited[current] = true

		s.redis.Del(ctx, subtreeCachePrefix+current.Hex())

		member, err := s.repo.GetByID(ctx, current)
		if err != nil || member.ParentID == nil {
			return
		}
		current = *member.ParentID
	}
}

func (s *TreeService) cachedStats(ctx context.Context, nodeID primitive.ObjectID) *models.SubtreeStats {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, subtreeCachePrefix+nodeID.Hex()).Result()
	if err != nil {
		return nil
	}

	var stats models.SubtreeStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *TreeService) storeStats(ctx context.Context, nodeID primitive.ObjectID, stats *models.SubtreeStats) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, subtreeCachePrefix+nodeID.Hex(), data, subtreeCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache subtree stats for %s: %v", nodeID.Hex(), err)
	}
}
