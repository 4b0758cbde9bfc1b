package utils

import (
	"regexp"
	"testing"
)

func TestGenerateReferralCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^KZ-[A-Z2-7]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			t.Fatalf("GenerateReferralCode: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match expected format", code)
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Fatalf("expected near-unique codes, got %d distinct out of 100", len(seen))
	}
}

func TestFormatMemberID(t *testing.T) {
	tests := []struct {
		sequence int64
		want     string
	}{
		{1, "ak000001"},
		{42, "ak000042"},
		{100000, "ak100000"},
		{1234567, "ak1234567"},
	}
	for _, tt := range tests {
		if got := FormatMemberID(tt.sequence); got != tt.want {
			t.Errorf("FormatMemberID(%d) = %q, want %q", tt.sequence, got, tt.want)
		}
	}
}

func TestReferralLink(t *testing.T) {
	got := ReferralLink("https://kutbulzaman.com/join", "KZ-ABC234")
	want := "https://kutbulzaman.com/join?ref=KZ-ABC234"
	if got != want {
		t.Errorf("ReferralLink = %q, want %q", got, want)
	}
}
