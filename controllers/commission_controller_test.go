package controllers

import (
	"context"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
)

func TestHandleEventDistributesAndCredits(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()

	root := env.seedUser(t, "root")
	source := env.seedUser(t, "source")
	env.attach(t, root, source, models.PositionLeft)

	cc := NewCommissionController(env.repo, env.ledger, env.commission, env.hub)

	c, rec := env.jsonRequest(t, http.MethodPost, "/api/commission/events", models.CommissionEventRequest{
		EventID:        "evt-1",
		SourceMemberID: source.ID.Hex(),
		Amount:         100,
		EventType:      models.EventTypeEntry,
	}, "")
	if err := cc.HandleEvent(c); err != nil {
		t.Fatalf("handling event: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	dist, err := env.ledger.GetDistributionByEventID(ctx, "evt-1")
	if err != nil {
		t.Fatalf("loading distribution: %v", err)
	}
	if len(dist.Recipients) == 0 {
		t.Errorf("distribution has no recipients")
	}
}

func TestHandleEventRetryAnswersOKWithoutPayingTwice(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()

	root := env.seedUser(t, "root")
	source := env.seedUser(t, "source")
	env.attach(t, root, source, models.PositionLeft)

	cc := NewCommissionController(env.repo, env.ledger, env.commission, env.hub)

	body := models.CommissionEventRequest{
		EventID:        "evt-retry",
		SourceMemberID: source.ID.Hex(),
		Amount:         100,
		EventType:      models.EventTypeEntry,
	}

	c, rec := env.jsonRequest(t, http.MethodPost, "/api/commission/events", body, "")
	if err := cc.HandleEvent(c); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}
	balanceAfterFirst := reloadBalance(t, env, root.ID)

	// The gateway resends the exact same event until it sees a 2xx, so the
	// replay must succeed without crediting anyone again.
	c, rec = env.jsonRequest(t, http.MethodPost, "/api/commission/events", body, "")
	if err := cc.HandleEvent(c); err != nil {
		t.Fatalf("retry delivery: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Data == nil {
		t.Errorf("retry response carries no distribution")
	}

	if got := reloadBalance(t, env, root.ID); got != balanceAfterFirst {
		t.Errorf("upline balance moved on retry: %v -> %v", balanceAfterFirst, got)
	}
	distributions, err := env.ledger.ListDistributions(ctx, 10)
	if err != nil {
		t.Fatalf("listing distributions: %v", err)
	}
	if len(distributions) != 1 {
		t.Errorf("ledger holds %d distributions, want 1", len(distributions))
	}
}

func reloadBalance(t *testing.T, env *controllerEnv, id primitive.ObjectID) float64 {
	t.Helper()

	user, err := env.repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reloading %s: %v", id.Hex(), err)
	}
	return user.Wallet.Balance
}
