package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/kutbulzaman/mlm_backend/models"
)

func TestConfirmPaymentActivatesMembership(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "member")
	mc := NewMembershipController(env.repo, env.ledger, env.commission, env.career, env.hub)

	c, rec := env.jsonRequest(t, http.MethodPost, "/api/membership/confirm", models.PaymentConfirmation{
		PaymentID:      "pay-1",
		MembershipType: models.MembershipEntry,
		Amount:         100,
	}, user.ID.Hex())
	if err := mc.ConfirmPayment(c); err != nil {
		t.Fatalf("confirming payment: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got, err := env.repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if got.MembershipType != models.MembershipEntry {
		t.Errorf("membershipType = %s, want %s", got.MembershipType, models.MembershipEntry)
	}
	if got.TotalInvestment != 100 {
		t.Errorf("totalInvestment = %v, want 100", got.TotalInvestment)
	}
}

func TestConfirmPaymentReplayDoesNotDoubleCount(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "member")
	mc := NewMembershipController(env.repo, env.ledger, env.commission, env.career, env.hub)

	body := models.PaymentConfirmation{
		PaymentID:      "pay-replay",
		MembershipType: models.MembershipEntry,
		Amount:         100,
	}

	c, rec := env.jsonRequest(t, http.MethodPost, "/api/membership/confirm", body, user.ID.Hex())
	if err := mc.ConfirmPayment(c); err != nil {
		t.Fatalf("first confirmation: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("first confirmation status = %d, want 200", rec.Code)
	}

	// Confirmations can arrive twice for one payment. The payment id already
	// produced a distribution, so the second pass must change nothing.
	c, rec = env.jsonRequest(t, http.MethodPost, "/api/membership/confirm", body, user.ID.Hex())
	if err := mc.ConfirmPayment(c); err != nil {
		t.Fatalf("replayed confirmation: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got, err := env.repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if got.TotalInvestment != 100 {
		t.Errorf("totalInvestment after replay = %v, want 100", got.TotalInvestment)
	}

	transactions, err := env.ledger.ListTransactions(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("listing transactions: %v", err)
	}
	payments := 0
	for _, tx := range transactions {
		if tx.Type == models.TransactionPayment && tx.ReferenceID == "pay-replay" {
			payments++
		}
	}
	if payments != 1 {
		t.Errorf("ledger holds %d payment records, want 1", payments)
	}
}
