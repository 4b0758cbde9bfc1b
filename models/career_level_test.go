package models

import "testing"

func TestCareerLevelForStats(t *testing.T) {
	tests := []struct {
		name       string
		investment float64
		referrals  int
		wantID     int
	}{
		{name: "fresh member", investment: 0, referrals: 0, wantID: 1},
		{name: "investment without referrals", investment: 5000, referrals: 0, wantID: 1},
		{name: "referrals without investment", investment: 0, referrals: 10, wantID: 1},
		{name: "exact tier 2 thresholds", investment: 500, referrals: 2, wantID: 2},
		{name: "tier 5 skips tier 4 referral bar", investment: 5000, referrals: 2, wantID: 5},
		{name: "top tier", investment: 25000, referrals: 50, wantID: 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CareerLevelForStats(tc.investment, tc.referrals)
			if got.ID != tc.wantID {
				t.Errorf("got tier %d (%s), want %d", got.ID, got.Name, tc.wantID)
			}
		})
	}
}

func TestLevelByIDFallsBackToEntryTier(t *testing.T) {
	if got := LevelByID(99); got.ID != 1 {
		t.Errorf("unknown id resolved to tier %d, want 1", got.ID)
	}
	if got := LevelByID(7); got.Name != "Nefs-i Kâmile" {
		t.Errorf("tier 7 = %s", got.Name)
	}
}
