package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/kutbulzaman/mlm_backend/models"
)

func TestSignupRejectsUnknownStrategyBeforeCreatingAccount(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()

	env.seedUser(t, "root")
	ac := NewAuthController(env.repo, env.placement, env.career, nil, env.hub)

	c, rec := env.jsonRequest(t, http.MethodPost, "/api/auth/signup", models.SignupRequest{
		Email:        "newcomer@example.com",
		Password:     "sifre1234",
		FullName:     "Newcomer",
		ReferralCode: "root",
		Strategy:     "alphabetical",
	}, "")
	if err := ac.Signup(c); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	// A rejected strategy must not leave a half-registered account behind.
	count, err := env.repo.Count(ctx)
	if err != nil {
		t.Fatalf("counting members: %v", err)
	}
	if count != 1 {
		t.Errorf("member count = %d, want 1", count)
	}
	if _, err := env.repo.GetByEmail(ctx, "newcomer@example.com"); err == nil {
		t.Errorf("account was created despite the rejected strategy")
	}
}
