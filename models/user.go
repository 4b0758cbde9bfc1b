// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tree slot positions
const (
	PositionLeft  = "left"
	PositionRight = "right"
)

// Membership types
const (
	MembershipFree    = "free"
	MembershipEntry   = "entry"
	MembershipMonthly = "monthly"
	MembershipYearly  = "yearly"
)

// Wallet holds the per-member financial aggregates. Balance is the only
// field withdrawals and transfers may reduce; the bonus fields only grow.
type Wallet struct {
	Balance         float64 `json:"balance" bson:"balance"`
	TotalEarnings   float64 `json:"totalEarnings" bson:"totalEarnings"`
	SponsorBonus    float64 `json:"sponsorBonus" bson:"sponsorBonus"`
	CareerBonus     float64 `json:"careerBonus" bson:"careerBonus"`
	PassiveIncome   float64 `json:"passiveIncome" bson:"passiveIncome"`
	LeadershipBonus float64 `json:"leadershipBonus" bson:"leadershipBonus"`
}

// Wallet field names accepted by MemberRepository.IncrementWallet
const (
	WalletFieldSponsorBonus    = "sponsorBonus"
	WalletFieldCareerBonus     = "careerBonus"
	WalletFieldPassiveIncome   = "passiveIncome"
	WalletFieldLeadershipBonus = "leadershipBonus"
)

// BankDetails is required before a withdrawal request is accepted
type BankDetails struct {
	BankName          string `json:"bankName" bson:"bankName"`
	AccountNumber     string `json:"accountNumber" bson:"accountNumber"`
	IBAN              string `json:"iban" bson:"iban"`
	AccountHolderName string `json:"accountHolderName" bson:"accountHolderName"`
}

// User is a member record. Sponsor and identity fields are written once at
// registration; tree links are written by the placement engine, wallet fields
// by the commission engine, and activity fields by the periodic activity job.
type User struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID     string             `json:"memberId" bson:"memberId"` // sequential code like ak000001
	Email        string             `json:"email" bson:"email"`
	Password     string             `json:"password,omitempty" bson:"password"`
	FullName     string             `json:"fullName" bson:"fullName"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Role         string             `json:"role" bson:"role"` // "admin" or "user"
	ReferralCode string             `json:"referralCode" bson:"referralCode"`

	// Binary tree structure. ParentID/Position mirror the parent's child link
	// so "already placed" is a single field check.
	SponsorID  *primitive.ObjectID `json:"sponsorId,omitempty" bson:"sponsorId,omitempty"`
	ParentID   *primitive.ObjectID `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Position   string              `json:"position,omitempty" bson:"position,omitempty"`
	LeftChild  *primitive.ObjectID `json:"leftChild,omitempty" bson:"leftChild,omitempty"`
	RightChild *primitive.ObjectID `json:"rightChild,omitempty" bson:"rightChild,omitempty"`

	// Career state. TotalTeamSize is a cached aggregate refreshed from a real
	// traversal after tree mutations, never trusted by the placement engine.
	CareerLevelID   int     `json:"careerLevelId" bson:"careerLevelId"`
	TotalInvestment float64 `json:"totalInvestment" bson:"totalInvestment"`
	DirectReferrals int     `json:"directReferrals" bson:"directReferrals"`
	TotalTeamSize   int     `json:"totalTeamSize" bson:"totalTeamSize"`

	Wallet      Wallet       `json:"wallet" bson:"wallet"`
	BankDetails *BankDetails `json:"bankDetails,omitempty" bson:"bankDetails,omitempty"`
	KYCStatus   string       `json:"kycStatus" bson:"kycStatus"` // "pending", "approved", "rejected"

	MembershipType      string     `json:"membershipType" bson:"membershipType"`
	MembershipExpiresAt *time.Time `json:"membershipExpiresAt,omitempty" bson:"membershipExpiresAt,omitempty"`
	IsActive            bool       `json:"isActive" bson:"isActive"`
	LastActivityAt      time.Time  `json:"lastActivityAt" bson:"lastActivityAt"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsPlaced reports whether the member already occupies a tree slot
func (u *User) IsPlaced() bool {
	return u.ParentID != nil
}

// ChildAt returns the child reference for the given slot
func (u *User) ChildAt(position string) *primitive.ObjectID {
	if position == PositionLeft {
		return u.LeftChild
	}
	return u.RightChild
}

// ReferralData is returned by the referral endpoints
type ReferralData struct {
	ReferralCode    string `json:"referralCode"`
	ReferralLink    string `json:"referralLink"`
	QRCode          string `json:"qrCode,omitempty"`
	DirectReferrals int    `json:"directReferrals"`
	TotalTeamSize   int    `json:"totalTeamSize"`
	LeftTeamSize    int    `json:"leftTeamSize"`
	RightTeamSize   int    `json:"rightTeamSize"`
}

// UpdateBankDetailsRequest updates the member's payout account
type UpdateBankDetailsRequest struct {
	BankDetails BankDetails `json:"bankDetails" validate:"required"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
