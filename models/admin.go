// models/admin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin log actions
const (
	AdminActionPlacement    = "BINARY_PLACEMENT"
	AdminActionMoveUser     = "MOVE_USER"
	AdminActionDeleteUser   = "DELETE_USER"
	AdminActionWithdrawal   = "PROCESS_WITHDRAWAL"
	AdminActionDistribution = "COMMISSION_DISTRIBUTION"
)

// AdminLog records one administrative action against a member
type AdminLog struct {
	ID           primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	AdminID      primitive.ObjectID  `json:"adminId" bson:"adminId"`
	Action       string              `json:"action" bson:"action"`
	TargetUserID *primitive.ObjectID `json:"targetUserId,omitempty" bson:"targetUserId,omitempty"`
	Details      string              `json:"details" bson:"details"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
}

// DashboardStats is the admin overview payload
type DashboardStats struct {
	TotalMembers      int64   `json:"totalMembers"`
	ActiveMembers     int64   `json:"activeMembers"`
	CurrentCount      int64   `json:"currentCount"`
	MaxCapacity       int64   `json:"maxCapacity"`
	TotalDistributed  float64 `json:"totalDistributed"`
	TotalSystemFund   float64 `json:"totalSystemFund"`
	PendingWithdrawal int64   `json:"pendingWithdrawals"`
}

// BinaryAnalysis is the admin tree-inspection payload
type BinaryAnalysis struct {
	UserID        string        `json:"userId"`
	MemberID      string        `json:"memberId"`
	CareerLevel   string        `json:"careerLevel"`
	LeftLeg       *SubtreeStats `json:"leftLeg,omitempty"`
	RightLeg      *SubtreeStats `json:"rightLeg,omitempty"`
	IsBalanced    bool          `json:"isBalanced"`
	Recommended   string        `json:"recommendedStrategy"`
	NextPlacement *PlacementResult `json:"nextPlacement,omitempty"`
}
