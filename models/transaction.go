// models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction types
const (
	TransactionCommission = "commission"
	TransactionBonus      = "bonus"
	TransactionWithdrawal = "withdrawal"
	TransactionTransfer   = "transfer"
	TransactionPayment    = "payment"
)

// Transaction is one immutable wallet ledger entry
type Transaction struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	Type        string             `json:"type" bson:"type"`
	Amount      float64            `json:"amount" bson:"amount"` // negative for debits
	Description string             `json:"description" bson:"description"`
	ReferenceID string             `json:"referenceId,omitempty" bson:"referenceId,omitempty"` // event/withdrawal id
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// TransferRequest moves balance between two members
type TransferRequest struct {
	ToMemberID string  `json:"toMemberId" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Note       string  `json:"note"`
}
