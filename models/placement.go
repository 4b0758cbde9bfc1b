// models/placement.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Placement strategies
const (
	StrategyBalanced    = "balanced"
	StrategyVolumeBased = "volume_based"
	StrategySizeBased   = "size_based"
	StrategyManual      = "manual"
)

// ValidStrategy reports whether s names a known placement strategy
func ValidStrategy(s string) bool {
	switch s {
	case StrategyBalanced, StrategyVolumeBased, StrategySizeBased, StrategyManual:
		return true
	}
	return false
}

// PlacementRequest describes one placement attempt. Manual placements carry
// an explicit ParentID and Position; the other strategies descend from the
// sponsor. A zero MaxDepth means the configured default.
type PlacementRequest struct {
	NewMemberID primitive.ObjectID
	SponsorID   primitive.ObjectID
	Strategy    string
	MaxDepth    int
	ParentID    *primitive.ObjectID
	Position    string
}

// PlacementResult is the slot a placement resolved to
type PlacementResult struct {
	ParentID primitive.ObjectID `json:"parentId"`
	Position string             `json:"position"`
	Depth    int                `json:"depth"`
}

// SubtreeStats are the aggregates the tree walker computes by traversal
type SubtreeStats struct {
	TeamSize    int     `json:"teamSize"`
	TotalVolume float64 `json:"totalVolume"`
}

// CapacityStatus is the admission guard's read-check result
type CapacityStatus struct {
	CanAddUser   bool  `json:"canAddUser"`
	CurrentCount int64 `json:"currentCount"`
	MaxCapacity  int64 `json:"maxCapacity"`
}

// PlacementLog is the audit entry written after each successful placement
type PlacementLog struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	NewMemberID primitive.ObjectID `json:"newMemberId" bson:"newMemberId"`
	SponsorID   primitive.ObjectID `json:"sponsorId" bson:"sponsorId"`
	ParentID    primitive.ObjectID `json:"parentId" bson:"parentId"`
	Position    string             `json:"position" bson:"position"`
	Depth       int                `json:"depth" bson:"depth"`
	Strategy    string             `json:"strategy" bson:"strategy"`
	PlacedBy    string             `json:"placedBy" bson:"placedBy"` // "registration" or admin id
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// AdminPlacementRequest is the admin manual-placement payload
type AdminPlacementRequest struct {
	UserID   string `json:"userId" validate:"required"`
	ParentID string `json:"parentId" validate:"required"`
	Position string `json:"position" validate:"required,oneof=left right"`
}

// AdminMoveRequest reparents an already-placed member
type AdminMoveRequest struct {
	UserID      string `json:"userId" validate:"required"`
	NewParentID string `json:"newParentId" validate:"required"`
	NewPosition string `json:"newPosition" validate:"required,oneof=left right"`
}

// TestPlacementRequest is the admin dry-run payload
type TestPlacementRequest struct {
	UserID    string `json:"userId" validate:"required"`
	SponsorID string `json:"sponsorId" validate:"required"`
	Strategy  string `json:"strategy"`
	MaxDepth  int    `json:"maxDepth"`
}
