// models/commission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission event types
const (
	EventTypeEntry       = "entry"
	EventTypeMonthly     = "monthly"
	EventTypeYearly      = "yearly"
	EventTypeProductSale = "product_sale"
)

// Recipient roles in a distribution
const (
	RecipientRoleSponsor = "sponsor"
	RecipientRoleCareer  = "career"
	RecipientRolePassive = "passive"
)

// Distribution statuses
const (
	DistributionStatusPending   = "pending"
	DistributionStatusCommitted = "committed"
)

// CommissionEvent is one qualifying payment to be split and distributed.
// EventID is the idempotency key: distributing the same event twice credits
// wallets exactly once.
type CommissionEvent struct {
	EventID        string             `json:"eventId" bson:"eventId"`
	SourceMemberID primitive.ObjectID `json:"sourceMemberId" bson:"sourceMemberId"`
	Amount         float64            `json:"amount" bson:"amount"`
	EventType      string             `json:"eventType" bson:"eventType"`
}

// CommissionRecipient is one wallet credit inside a distribution
type CommissionRecipient struct {
	MemberID primitive.ObjectID `json:"memberId" bson:"memberId"`
	Role     string             `json:"role" bson:"role"`
	Amount   float64            `json:"amount" bson:"amount"`
	Level    int                `json:"level" bson:"level"` // ancestor depth, 1 = direct upline
}

// CommissionDistribution is the immutable audit record of one distribution.
// Invariant: SponsorBonus + CareerBonus + PassiveIncome + SystemFund equals
// TotalAmount within a cent; unclaimed career/passive remainders are folded
// into SystemFund rather than dropped.
type CommissionDistribution struct {
	ID             primitive.ObjectID    `json:"id,omitempty" bson:"_id,omitempty"`
	EventID        string                `json:"eventId" bson:"eventId"`
	SourceMemberID primitive.ObjectID    `json:"sourceMemberId" bson:"sourceMemberId"`
	EventType      string                `json:"eventType" bson:"eventType"`
	TotalAmount    float64               `json:"totalAmount" bson:"totalAmount"`
	SponsorBonus   float64               `json:"sponsorBonus" bson:"sponsorBonus"`
	CareerBonus    float64               `json:"careerBonus" bson:"careerBonus"`
	PassiveIncome  float64               `json:"passiveIncome" bson:"passiveIncome"`
	SystemFund     float64               `json:"systemFund" bson:"systemFund"`
	Recipients     []CommissionRecipient `json:"recipients" bson:"recipients"`
	Status         string                `json:"status" bson:"status"`
	CreatedAt      time.Time             `json:"createdAt" bson:"createdAt"`
	CommittedAt    *time.Time            `json:"committedAt,omitempty" bson:"committedAt,omitempty"`
}

// CommissionEventRequest is the payment-webhook payload
type CommissionEventRequest struct {
	EventID        string  `json:"eventId"`
	SourceMemberID string  `json:"sourceMemberId" validate:"required"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	EventType      string  `json:"eventType" validate:"required,oneof=entry monthly yearly product_sale"`
}
