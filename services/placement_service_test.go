package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kutbulzaman/mlm_backend/models"
)

func TestPlaceBalancedFillsSponsorSlotsThenTieGoesLeft(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	d := seedMember(t, env.repo, "d")

	steps := []struct {
		member       *models.User
		wantParent   string
		wantPosition string
		wantDepth    int
	}{
		{member: b, wantParent: "root", wantPosition: models.PositionLeft, wantDepth: 1},
		{member: c, wantParent: "root", wantPosition: models.PositionRight, wantDepth: 1},
		// Both legs weigh 1, so the tie keeps left and descends into b.
		{member: d, wantParent: "b", wantPosition: models.PositionLeft, wantDepth: 2},
	}

	for _, step := range steps {
		result, err := env.placement.Place(ctx, models.PlacementRequest{
			NewMemberID: step.member.ID,
			SponsorID:   root.ID,
			Strategy:    models.StrategyBalanced,
		}, "registration")
		if err != nil {
			t.Fatalf("placing %s: %v", step.member.MemberID, err)
		}
		parent, err := env.repo.GetByID(ctx, result.ParentID)
		if err != nil {
			t.Fatalf("loading parent: %v", err)
		}
		if parent.MemberID != step.wantParent || result.Position != step.wantPosition || result.Depth != step.wantDepth {
			t.Errorf("placing %s: got %s/%s depth %d, want %s/%s depth %d",
				step.member.MemberID, parent.MemberID, result.Position, result.Depth,
				step.wantParent, step.wantPosition, step.wantDepth)
		}
	}

	// The cached team size on the root must reflect all three descendants.
	got, err := env.repo.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("reloading root: %v", err)
	}
	if got.TotalTeamSize != 3 {
		t.Errorf("root totalTeamSize = %d, want 3", got.TotalTeamSize)
	}
}

func TestFindPositionIsDeterministic(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)

	req := models.PlacementRequest{
		NewMemberID: seedMember(t, env.repo, "d").ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyBalanced,
	}

	first, err := env.placement.FindPosition(ctx, req)
	if err != nil {
		t.Fatalf("first resolution: %v", err)
	}
	second, err := env.placement.FindPosition(ctx, req)
	if err != nil {
		t.Fatalf("second resolution: %v", err)
	}
	if first.ParentID != second.ParentID || first.Position != second.Position || first.Depth != second.Depth {
		t.Errorf("identical tree state resolved differently: %+v vs %+v", first, second)
	}
}

func TestPlaceVolumeBasedDescendsLighterVolume(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	heavy := seedMember(t, env.repo, "heavy")
	light := seedMember(t, env.repo, "light")
	attach(t, env.repo, root, heavy, models.PositionLeft)
	attach(t, env.repo, root, light, models.PositionRight)

	if err := env.repo.IncrementInvestment(ctx, heavy.ID, 500); err != nil {
		t.Fatalf("setting investment: %v", err)
	}
	if err := env.repo.IncrementInvestment(ctx, light.ID, 100); err != nil {
		t.Fatalf("setting investment: %v", err)
	}

	newcomer := seedMember(t, env.repo, "newcomer")
	result, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyVolumeBased,
	}, "registration")
	if err != nil {
		t.Fatalf("placing: %v", err)
	}
	if result.ParentID != light.ID || result.Position != models.PositionLeft {
		t.Errorf("got parent %s position %s, want under light/left", result.ParentID.Hex(), result.Position)
	}
}

func TestPlaceSizeBasedTakesFirstOpeningLevelByLevel(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	e := seedMember(t, env.repo, "e")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)
	attach(t, env.repo, b, e, models.PositionLeft)

	// Balanced would favor the lighter c leg; the breadth scan stops at the
	// first opening instead, which is b's right slot.
	newcomer := seedMember(t, env.repo, "newcomer")
	result, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategySizeBased,
	}, "registration")
	if err != nil {
		t.Fatalf("placing: %v", err)
	}
	if result.ParentID != b.ID || result.Position != models.PositionRight || result.Depth != 2 {
		t.Errorf("got %s/%s depth %d, want b/right depth 2", result.ParentID.Hex(), result.Position, result.Depth)
	}
}

func TestPlaceManual(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	attach(t, env.repo, root, b, models.PositionLeft)

	newcomer := seedMember(t, env.repo, "newcomer")
	rootID := root.ID

	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyManual,
		ParentID:    &rootID,
		Position:    models.PositionLeft,
	}, "admin")
	if !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("occupied slot: got %v, want ErrSlotOccupied", err)
	}

	result, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyManual,
		ParentID:    &rootID,
		Position:    models.PositionRight,
	}, "admin")
	if err != nil {
		t.Fatalf("placing in free slot: %v", err)
	}
	if result.ParentID != root.ID || result.Position != models.PositionRight {
		t.Errorf("got %s/%s, want root/right", result.ParentID.Hex(), result.Position)
	}
}

func TestPlaceRejectsAlreadyPlacedMember(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	attach(t, env.repo, root, b, models.PositionLeft)

	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: b.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyBalanced,
	}, "registration")
	if !errors.Is(err, ErrAlreadyPlaced) {
		t.Fatalf("got %v, want ErrAlreadyPlaced", err)
	}
}

func TestPlaceRejectsInactiveSponsor(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	if err := env.repo.SetActive(ctx, root.ID, false); err != nil {
		t.Fatalf("deactivating sponsor: %v", err)
	}

	newcomer := seedMember(t, env.repo, "newcomer")
	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyBalanced,
	}, "registration")
	if !errors.Is(err, ErrSponsorNotFound) {
		t.Fatalf("got %v, want ErrSponsorNotFound", err)
	}
}

func TestPlaceRejectsUnknownStrategy(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	newcomer := seedMember(t, env.repo, "newcomer")

	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    "alphabetical",
	}, "registration")
	if !errors.Is(err, ErrInvalidStrategy) {
		t.Fatalf("got %v, want ErrInvalidStrategy", err)
	}
}

func TestPlaceEnforcesCapacity(t *testing.T) {
	env := newTestEnv(2)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	newcomer := seedMember(t, env.repo, "newcomer")

	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyBalanced,
	}, "registration")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("got %v, want ErrCapacityExceeded", err)
	}
}

func TestPlaceDepthExceeded(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)

	newcomer := seedMember(t, env.repo, "newcomer")
	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: newcomer.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyBalanced,
		MaxDepth:    1,
	}, "registration")
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("got %v, want ErrDepthExceeded", err)
	}
}

func TestMoveRejectsReparentUnderOwnSubtree(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	e := seedMember(t, env.repo, "e")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, b, e, models.PositionLeft)

	err := env.placement.Move(ctx, b.ID, e.ID, models.PositionRight)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("got %v, want ErrCycleDetected", err)
	}
}

func TestMoveReparentsSubtree(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	e := seedMember(t, env.repo, "e")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)
	attach(t, env.repo, b, e, models.PositionLeft)

	if err := env.placement.Move(ctx, e.ID, c.ID, models.PositionLeft); err != nil {
		t.Fatalf("moving: %v", err)
	}

	moved, err := env.repo.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("reloading moved member: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != c.ID || moved.Position != models.PositionLeft {
		t.Errorf("moved member parent = %+v/%s, want c/left", moved.ParentID, moved.Position)
	}

	oldParent, err := env.repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("reloading old parent: %v", err)
	}
	if oldParent.LeftChild != nil {
		t.Errorf("old parent still holds the child link")
	}
}

func TestPlaceManualRejectsDetachedRootUnderOwnSubtree(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	// d heads a detached subtree: it has a child but no parent, so it still
	// counts as unplaced. Slotting it under its own child must be refused.
	d := seedMember(t, env.repo, "d")
	dc := seedMember(t, env.repo, "dc")
	attach(t, env.repo, d, dc, models.PositionLeft)

	dcID := dc.ID
	_, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: d.ID,
		SponsorID:   dc.ID,
		Strategy:    models.StrategyManual,
		ParentID:    &dcID,
		Position:    models.PositionLeft,
	}, "admin")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("got %v, want ErrCycleDetected", err)
	}

	// A slot outside the subtree stays available.
	root := seedMember(t, env.repo, "root")
	rootID := root.ID
	if _, err := env.placement.Place(ctx, models.PlacementRequest{
		NewMemberID: d.ID,
		SponsorID:   root.ID,
		Strategy:    models.StrategyManual,
		ParentID:    &rootID,
		Position:    models.PositionLeft,
	}, "admin"); err != nil {
		t.Fatalf("placing outside own subtree: %v", err)
	}
}

func TestRemoveDetachesMemberAndReplantsChildren(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	root := seedMember(t, env.repo, "root")
	b := seedMember(t, env.repo, "b")
	c := seedMember(t, env.repo, "c")
	e := seedMember(t, env.repo, "e")
	f := seedMember(t, env.repo, "f")
	attach(t, env.repo, root, b, models.PositionLeft)
	attach(t, env.repo, root, c, models.PositionRight)
	attach(t, env.repo, b, e, models.PositionLeft)
	attach(t, env.repo, b, f, models.PositionRight)

	parentID, replanted, err := env.placement.Remove(ctx, b.ID)
	if err != nil {
		t.Fatalf("removing: %v", err)
	}
	if parentID != root.ID || replanted != 2 {
		t.Errorf("got parent %s with %d replanted, want root with 2", parentID.Hex(), replanted)
	}

	removed, err := env.repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("reloading removed member: %v", err)
	}
	if removed.ParentID != nil || removed.LeftChild != nil || removed.RightChild != nil {
		t.Errorf("removed member still linked: parent %v left %v right %v",
			removed.ParentID, removed.LeftChild, removed.RightChild)
	}

	// b's slot opens up, so e takes root/left and f then descends into the
	// lighter leg.
	gotRoot, err := env.repo.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("reloading root: %v", err)
	}
	if gotRoot.LeftChild == nil || *gotRoot.LeftChild != e.ID {
		t.Errorf("root left child = %v, want e", gotRoot.LeftChild)
	}
	for _, orphan := range []*models.User{e, f} {
		got, err := env.repo.GetByID(ctx, orphan.ID)
		if err != nil {
			t.Fatalf("reloading %s: %v", orphan.MemberID, err)
		}
		if got.ParentID == nil || *got.ParentID == b.ID {
			t.Errorf("%s parent = %v, want a live tree node", orphan.MemberID, got.ParentID)
		}
	}
	if gotRoot.TotalTeamSize != 3 {
		t.Errorf("root totalTeamSize = %d, want 3", gotRoot.TotalTeamSize)
	}
}

func TestRemoveRejectsUnplacedMember(t *testing.T) {
	env := newTestEnv(100)
	ctx := context.Background()

	loner := seedMember(t, env.repo, "loner")
	if _, _, err := env.placement.Remove(ctx, loner.ID); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("got %v, want ErrNodeNotFound", err)
	}
}
