// controllers/wallet_controller.go
package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/middleware"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/utils"
	"github.com/kutbulzaman/mlm_backend/websocket"
)

// WalletController serves wallet balances, transactions, withdrawals and
// member-to-member transfers
type WalletController struct {
	repo   repositories.MemberRepository
	ledger repositories.LedgerRepository
	hub    *websocket.Hub
}

// NewWalletController creates a new wallet controller
func NewWalletController(repo repositories.MemberRepository, ledger repositories.LedgerRepository, hub *websocket.Hub) *WalletController {
	return &WalletController{repo: repo, ledger: ledger, hub: hub}
}

// GetWallet returns the calling member's wallet aggregates
func (wc *WalletController) GetWallet(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := wc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Wallet",
		Data: map[string]interface{}{
			"wallet":      user.Wallet,
			"bankDetails": user.BankDetails,
		},
	})
}

// GetTransactions returns the calling member's wallet ledger entries
func (wc *WalletController) GetTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := wc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	transactions, err := wc.ledger.ListTransactions(ctx, user.ID, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transactions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transactions",
		Data:    transactions,
	})
}

// RequestWithdrawal debits the member's balance and opens a pending
// withdrawal for admin review. Rejection refunds the debit.
func (wc *WalletController) RequestWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := wc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.WithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}
	if user.BankDetails == nil || user.BankDetails.IBAN == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Bank details must be set before requesting a withdrawal",
		})
	}
	if req.Amount > user.Wallet.Balance {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Insufficient balance",
		})
	}

	if err := wc.repo.AdjustBalance(ctx, user.ID, -req.Amount); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to reserve withdrawal amount",
		})
	}

	withdrawal := &models.Withdrawal{
		ID:          primitive.NewObjectID(),
		UserID:      user.ID,
		Amount:      req.Amount,
		Status:      "pending",
		BankDetails: user.BankDetails,
		UserNote:    utils.SanitizeInput(req.UserNote),
		CreatedAt:   time.Now(),
	}
	if err := wc.ledger.InsertWithdrawal(ctx, withdrawal); err != nil {
		// refund the debit so a storage error never eats balance
		if rbErr := wc.repo.AdjustBalance(ctx, user.ID, req.Amount); rbErr != nil {
			c.Logger().Errorf("Withdrawal refund failed for %s: %v", user.ID.Hex(), rbErr)
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create withdrawal request",
		})
	}

	wc.appendTransaction(ctx, c, &models.Transaction{
		UserID:      user.ID,
		Type:        models.TransactionWithdrawal,
		Amount:      -req.Amount,
		Description: "Withdrawal request",
		ReferenceID: withdrawal.ID.Hex(),
	})

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Withdrawal request created",
		Data:    withdrawal,
	})
}

// ListWithdrawals returns withdrawal requests, optionally filtered by status
// (admin only)
func (wc *WalletController) ListWithdrawals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	withdrawals, err := wc.ledger.ListWithdrawals(ctx, c.QueryParam("status"), 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load withdrawals",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawals",
		Data:    withdrawals,
	})
}

// ProcessWithdrawal approves or rejects a pending withdrawal (admin only)
func (wc *WalletController) ProcessWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	adminID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	withdrawalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID",
		})
	}

	var req models.ProcessWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	withdrawal, err := wc.ledger.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Withdrawal not found",
		})
	}
	if withdrawal.Status != "pending" {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Withdrawal already processed",
		})
	}

	now := time.Now()
	withdrawal.ProcessedAt = &now
	withdrawal.AdminID = &adminID
	withdrawal.AdminNote = utils.SanitizeInput(req.AdminNote)

	if req.Approve {
		withdrawal.Status = "approved"
	} else {
		withdrawal.Status = "rejected"
		withdrawal.RejectionReason = utils.SanitizeInput(req.RejectionReason)
		// put the reserved amount back
		if err := wc.repo.AdjustBalance(ctx, withdrawal.UserID, withdrawal.Amount); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to refund withdrawal amount",
			})
		}
		wc.appendTransaction(ctx, c, &models.Transaction{
			UserID:      withdrawal.UserID,
			Type:        models.TransactionWithdrawal,
			Amount:      withdrawal.Amount,
			Description: "Withdrawal rejected, amount refunded",
			ReferenceID: withdrawal.ID.Hex(),
		})
	}

	if err := wc.ledger.SetWithdrawalStatus(ctx, withdrawalID, withdrawal); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update withdrawal",
		})
	}

	wc.ledger.InsertAdminLog(ctx, &models.AdminLog{
		AdminID:      adminID,
		Action:       models.AdminActionWithdrawal,
		TargetUserID: &withdrawal.UserID,
		Details:      fmt.Sprintf("withdrawal %s %s", withdrawal.ID.Hex(), withdrawal.Status),
		CreatedAt:    now,
	})

	wc.hub.NotifyWithdrawal(withdrawal.UserID, map[string]interface{}{
		"withdrawalId": withdrawal.ID.Hex(),
		"status":       withdrawal.Status,
		"amount":       withdrawal.Amount,
	})

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal " + withdrawal.Status,
		Data:    withdrawal,
	})
}

// Transfer moves balance from the calling member to another member
func (wc *WalletController) Transfer(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	sender, err := wc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	recipient, err := wc.repo.GetByMemberID(ctx, req.ToMemberID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Recipient not found",
		})
	}
	if recipient.ID == sender.ID {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cannot transfer to yourself",
		})
	}
	if req.Amount > sender.Wallet.Balance {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Insufficient balance",
		})
	}

	if err := wc.repo.AdjustBalance(ctx, sender.ID, -req.Amount); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Transfer failed",
		})
	}
	if err := wc.repo.AdjustBalance(ctx, recipient.ID, req.Amount); err != nil {
		if rbErr := wc.repo.AdjustBalance(ctx, sender.ID, req.Amount); rbErr != nil {
			c.Logger().Errorf("Transfer refund failed for %s: %v", sender.ID.Hex(), rbErr)
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Transfer failed",
		})
	}

	note := utils.SanitizeInput(req.Note)
	reference := primitive.NewObjectID().Hex()
	wc.appendTransaction(ctx, c, &models.Transaction{
		UserID:      sender.ID,
		Type:        models.TransactionTransfer,
		Amount:      -req.Amount,
		Description: fmt.Sprintf("Transfer to %s. %s", recipient.MemberID, note),
		ReferenceID: reference,
	})
	wc.appendTransaction(ctx, c, &models.Transaction{
		UserID:      recipient.ID,
		Type:        models.TransactionTransfer,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Transfer from %s. %s", sender.MemberID, note),
		ReferenceID: reference,
	})

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transfer completed",
		Data: map[string]interface{}{
			"toMemberId": recipient.MemberID,
			"amount":     req.Amount,
		},
	})
}

// UpdateBankDetails stores the member's payout account
func (wc *WalletController) UpdateBankDetails(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := wc.currentUser(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.UpdateBankDetailsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if req.BankDetails.IBAN == "" || req.BankDetails.AccountHolderName == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "IBAN and account holder name are required",
		})
	}

	details := models.BankDetails{
		BankName:          utils.SanitizeInput(req.BankDetails.BankName),
		AccountNumber:     utils.SanitizeInput(req.BankDetails.AccountNumber),
		IBAN:              utils.SanitizeInput(req.BankDetails.IBAN),
		AccountHolderName: utils.SanitizeInput(req.BankDetails.AccountHolderName),
	}
	if err := wc.repo.SetBankDetails(ctx, user.ID, &details); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update bank details",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Bank details updated",
		Data:    details,
	})
}

func (wc *WalletController) currentUser(ctx context.Context, c echo.Context) (*models.User, error) {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return nil, err
	}
	return wc.repo.GetByID(ctx, userID)
}

// appendTransaction records a ledger entry; failures are logged, never
// surfaced, since the balance mutation already happened
func (wc *WalletController) appendTransaction(ctx context.Context, c echo.Context, tx *models.Transaction) {
	tx.CreatedAt = time.Now()
	if err := wc.ledger.AppendTransaction(ctx, tx); err != nil {
		c.Logger().Errorf("Failed to append transaction for %s: %v", tx.UserID.Hex(), err)
	}
}
