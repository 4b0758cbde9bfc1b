// services/placement_service.go
package services

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
)

// PlacementService decides where a new member attaches in the binary tree
// and performs the single link write. It never touches wallets.
type PlacementService struct {
	repo     repositories.MemberRepository
	ledger   repositories.LedgerRepository
	tree     *TreeService
	capacity *CapacityService
	locks    *TreeLocker
	maxDepth int
}

// NewPlacementService wires the placement engine
func NewPlacementService(repo repositories.MemberRepository, ledger repositories.LedgerRepository, tree *TreeService, capacity *CapacityService, locks *TreeLocker, maxDepth int) *PlacementService {
	return &PlacementService{
		repo:     repo,
		ledger:   ledger,
		tree:     tree,
		capacity: capacity,
		locks:    locks,
		maxDepth: maxDepth,
	}
}

// Place attaches req.NewMemberID under the resolved parent slot. Exactly one
// child link transitions from empty to the new member; a failed placement
// leaves no half-written link behind.
func (s *PlacementService) Place(ctx context.Context, req models.PlacementRequest, placedBy string) (*models.PlacementResult, error) {
	if err := s.capacity.EnsureCapacity(ctx); err != nil {
		return nil, err
	}

	newMember, err := s.repo.GetByID(ctx, req.NewMemberID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	if newMember.IsPlaced() {
		return nil, ErrAlreadyPlaced
	}

	anchorID := req.SponsorID
	if req.Strategy == models.StrategyManual && req.ParentID != nil {
		anchorID = *req.ParentID
	}
	rootID, err := rootOf(ctx, s.repo, anchorID)
	if err != nil {
		if err == ErrNodeNotFound {
			return nil, ErrSponsorNotFound
		}
		return nil, err
	}

	unlock := s.locks.Lock(rootID)
	defer unlock()

	result, err := s.FindPosition(ctx, req)
	if err != nil {
		return nil, err
	}

	// An unplaced member can still carry a subtree (a detached tree root).
	// Landing inside that subtree would make the member its own ancestor.
	if newMember.LeftChild != nil || newMember.RightChild != nil {
		inSubtree, err := s.isDescendant(ctx, newMember.ID, result.ParentID)
		if err != nil {
			return nil, err
		}
		if inSubtree {
			return nil, ErrCycleDetected
		}
	}

	childID := req.NewMemberID
	if err := s.repo.SetChild(ctx, result.ParentID, result.Position, &childID); err != nil {
		return nil, err
	}
	if err := s.repo.SetParent(ctx, childID, &result.ParentID, result.Position); err != nil {
		// Undo the parent-side link so no half-written placement survives.
		if undoErr := s.repo.SetChild(ctx, result.ParentID, result.Position, nil); undoErr != nil {
			log.Printf("Failed to undo child link for %s after placement error: %v", result.ParentID.Hex(), undoErr)
		}
		return nil, err
	}

	s.tree.InvalidatePath(ctx, result.ParentID)
	s.refreshAncestors(ctx, result.ParentID)

	logEntry := &models.PlacementLog{
		NewMemberID: req.NewMemberID,
		SponsorID:   req.SponsorID,
		ParentID:    result.ParentID,
		Position:    result.Position,
		Depth:       result.Depth,
		Strategy:    req.Strategy,
		PlacedBy:    placedBy,
	}
	if err := s.ledger.InsertPlacementLog(ctx, logEntry); err != nil {
		log.Printf("Failed to write placement log for %s: %v", req.NewMemberID.Hex(), err)
	}

	return result, nil
}

// FindPosition resolves the slot a placement request would use without
// writing anything. Used directly by the admin placement tester.
func (s *PlacementService) FindPosition(ctx context.Context, req models.PlacementRequest) (*models.PlacementResult, error) {
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.maxDepth
	}

	switch req.Strategy {
	case models.StrategyManual:
		return s.resolveManual(ctx, req)
	case models.StrategyBalanced, models.StrategyVolumeBased:
		sponsor, err := s.activeSponsor(ctx, req.SponsorID)
		if err != nil {
			return nil, err
		}
		return s.descend(ctx, sponsor, req.Strategy, maxDepth)
	case models.StrategySizeBased:
		sponsor, err := s.activeSponsor(ctx, req.SponsorID)
		if err != nil {
			return nil, err
		}
		return s.firstEmptySlot(ctx, sponsor, maxDepth)
	default:
		return nil, ErrInvalidStrategy
	}
}

func (s *PlacementService) activeSponsor(ctx context.Context, sponsorID primitive.ObjectID) (*models.User, error) {
	sponsor, err := s.repo.GetByID(ctx, sponsorID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrSponsorNotFound
		}
		return nil, err
	}
	if !sponsor.IsActive {
		return nil, ErrSponsorNotFound
	}
	return sponsor, nil
}

func (s *PlacementService) resolveManual(ctx context.Context, req models.PlacementRequest) (*models.PlacementResult, error) {
	if req.ParentID == nil || (req.Position != models.PositionLeft && req.Position != models.PositionRight) {
		return nil, ErrInvalidStrategy
	}

	parent, err := s.repo.GetByID(ctx, *req.ParentID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	if parent.ChildAt(req.Position) != nil {
		return nil, ErrSlotOccupied
	}
	return &models.PlacementResult{ParentID: parent.ID, Position: req.Position, Depth: 0}, nil
}

// descend walks down from the sponsor choosing the lighter side at each
// node. An empty slot wins immediately; ties resolve left so identical tree
// states always produce identical placements.
func (s *PlacementService) descend(ctx context.Context, sponsor *models.User, strategy string, maxDepth int) (*models.PlacementResult, error) {
	current := sponsor
	visited := make(map[primitive.ObjectID]bool)

	for depth := 1; depth <= maxDepth; depth++ {
		if visited[current.ID] {
			return nil, ErrCycleDetected
		}
		visited[current.ID] = true

		if current.LeftChild == nil {
			return &models.PlacementResult{ParentID: current.ID, Position: models.PositionLeft, Depth: depth}, nil
		}
		if current.RightChild == nil {
			return &models.PlacementResult{ParentID: current.ID, Position: models.PositionRight, Depth: depth}, nil
		}

		leftStats, err := s.tree.SubtreeStats(ctx, *current.LeftChild)
		if err != nil {
			return nil, err
		}
		rightStats, err := s.tree.SubtreeStats(ctx, *current.RightChild)
		if err != nil {
			return nil, err
		}

		nextID := *current.LeftChild
		if heavier(strategy, leftStats, rightStats) {
			nextID = *current.RightChild
		}

		next, err := s.repo.GetByID(ctx, nextID)
		if err != nil {
			return nil, err
		}
		current = next
	}

	return nil, ErrDepthExceeded
}

// heavier reports whether the left leg outweighs the right under the
// strategy's metric; equal legs keep the left preference.
func heavier(strategy string, left, right *models.SubtreeStats) bool {
	if strategy == models.StrategyVolumeBased {
		return left.TotalVolume > right.TotalVolume
	}
	return left.TeamSize > right.TeamSize
}

// firstEmptySlot scans level by level, left slot before right slot, and
// takes the first opening. No subtree comparison.
func (s *PlacementService) firstEmptySlot(ctx context.Context, sponsor *models.User, maxDepth int) (*models.PlacementResult, error) {
	visited := make(map[primitive.ObjectID]bool)

	type queued struct {
		node  *models.User
		depth int
	}
	queue := []queued{{node: sponsor, depth: 1}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.node.ID] {
			return nil, ErrCycleDetected
		}
		visited[item.node.ID] = true

		if item.node.LeftChild == nil {
			return &models.PlacementResult{ParentID: item.node.ID, Position: models.PositionLeft, Depth: item.depth}, nil
		}
		if item.node.RightChild == nil {
			return &models.PlacementResult{ParentID: item.node.ID, Position: models.PositionRight, Depth: item.depth}, nil
		}
		if item.depth >= maxDepth {
			continue
		}

		left, err := s.repo.GetByID(ctx, *item.node.LeftChild)
		if err != nil {
			return nil, err
		}
		right, err := s.repo.GetByID(ctx, *item.node.RightChild)
		if err != nil {
			return nil, err
		}
		queue = append(queue, queued{node: left, depth: item.depth + 1}, queued{node: right, depth: item.depth + 1})
	}

	return nil, ErrDepthExceeded
}

// Move detaches an already-placed member and reattaches it under a new
// parent slot. Admin-only path; subtree contents move with the member.
func (s *PlacementService) Move(ctx context.Context, memberID, newParentID primitive.ObjectID, newPosition string) error {
	member, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return ErrNodeNotFound
		}
		return err
	}
	if !member.IsPlaced() {
		return ErrNodeNotFound
	}

	rootID, err := rootOf(ctx, s.repo, *member.ParentID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(rootID)
	defer unlock()

	newParent, err := s.repo.GetByID(ctx, newParentID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return ErrNodeNotFound
		}
		return err
	}
	if newParent.ChildAt(newPosition) != nil {
		return ErrSlotOccupied
	}
	// Moving a member under its own descendant would create a cycle.
	inSubtree, err := s.isDescendant(ctx, memberID, newParentID)
	if err != nil {
		return err
	}
	if inSubtree || memberID == newParentID {
		return ErrCycleDetected
	}

	oldParentID := *member.ParentID
	oldPosition := member.Position

	if err := s.repo.SetChild(ctx, oldParentID, oldPosition, nil); err != nil {
		return err
	}
	childID := memberID
	if err := s.repo.SetChild(ctx, newParentID, newPosition, &childID); err != nil {
		// Restore the original link.
		if undoErr := s.repo.SetChild(ctx, oldParentID, oldPosition, &childID); undoErr != nil {
			log.Printf("Failed to restore child link for %s after move error: %v", oldParentID.Hex(), undoErr)
		}
		return err
	}
	if err := s.repo.SetParent(ctx, memberID, &newParentID, newPosition); err != nil {
		return err
	}

	s.tree.InvalidatePath(ctx, oldParentID)
	s.tree.InvalidatePath(ctx, newParentID)
	s.refreshAncestors(ctx, oldParentID)
	s.refreshAncestors(ctx, newParentID)
	return nil
}

// Remove unlinks a placed member from the tree and replants each orphaned
// child subtree under the removed member's parent with the balanced strategy.
// The detach runs under the tree lock so a concurrent placement can never
// descend through the member mid-removal; each replant then takes the lock
// itself. Returns the old parent and how many subtrees were replanted.
func (s *PlacementService) Remove(ctx context.Context, memberID primitive.ObjectID) (primitive.ObjectID, int, error) {
	member, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return primitive.NilObjectID, 0, ErrNodeNotFound
		}
		return primitive.NilObjectID, 0, err
	}
	if !member.IsPlaced() {
		return primitive.NilObjectID, 0, ErrNodeNotFound
	}
	parentID := *member.ParentID

	rootID, err := rootOf(ctx, s.repo, parentID)
	if err != nil {
		return primitive.NilObjectID, 0, err
	}

	var orphans []primitive.ObjectID
	err = func() error {
		unlock := s.locks.Lock(rootID)
		defer unlock()

		// Re-read under the lock; the children may have changed since.
		member, err = s.repo.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if err := s.repo.SetChild(ctx, parentID, member.Position, nil); err != nil {
			return err
		}
		if err := s.repo.SetParent(ctx, memberID, nil, ""); err != nil {
			return err
		}
		for _, position := range []string{models.PositionLeft, models.PositionRight} {
			childID := member.ChildAt(position)
			if childID == nil {
				continue
			}
			if err := s.repo.SetChild(ctx, memberID, position, nil); err != nil {
				return err
			}
			if err := s.repo.SetParent(ctx, *childID, nil, ""); err != nil {
				return err
			}
			orphans = append(orphans, *childID)
		}
		return nil
	}()
	if err != nil {
		return primitive.NilObjectID, 0, err
	}

	replanted := 0
	for _, orphanID := range orphans {
		if _, err := s.Place(ctx, models.PlacementRequest{
			NewMemberID: orphanID,
			SponsorID:   parentID,
			Strategy:    models.StrategyBalanced,
		}, "admin_reparent"); err != nil {
			log.Printf("Failed to replant subtree %s under %s: %v", orphanID.Hex(), parentID.Hex(), err)
			continue
		}
		replanted++
	}

	s.tree.InvalidatePath(ctx, parentID)
	s.refreshAncestors(ctx, parentID)
	return parentID, replanted, nil
}

func (s *PlacementService) isDescendant(ctx context.Context, rootID, candidateID primitive.ObjectID) (bool, error) {
	visited := make(map[primitive.ObjectID]bool)
	queue := []primitive.ObjectID{rootID}

	for len(queue) > 0 && len(visited) < maxAncestorWalk {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			return false, ErrCycleDetected
		}
		visited[id] = true

		if id == candidateID {
			return true, nil
		}
		node, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if err == repositories.ErrNotFound {
				continue
			}
			return false, err
		}
		if node.LeftChild != nil {
			queue = append(queue, *node.LeftChild)
		}
		if node.RightChild != nil {
			queue = append(queue, *node.RightChild)
		}
	}
	return false, nil
}

// refreshAncestors recomputes cached team sizes from the touched parent up
// to the tree root, bounded like every ancestor walk.
func (s *PlacementService) refreshAncestors(ctx context.Context, fromID primitive.ObjectID) {
	visited := make(map[primitive.ObjectID]bool)
	current := fromID

	for i := 0; i < maxAncestorWalk; i++ {
		if visited[current] {
			return
		}
		visited[current] = true

		if err := s.tree.RefreshTeamSize(ctx, current); err != nil {
			log.Printf("Failed to refresh team size for %s: %v", current.Hex(), err)
			return
		}
		member, err := s.repo.GetByID(ctx, current)
		if err != nil || member.ParentID == nil {
			return
		}
		current = *member.ParentID
	}
}
