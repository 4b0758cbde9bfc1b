package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const referralPrefix = "KZ"

// GenerateReferralCode generates a member referral code.
// Format: KZ-{RANDOM} where RANDOM is 6 alphanumeric characters, e.g. KZ-ABC123
func GenerateReferralCode() (string, error) {
	// 4 random bytes encode to 7 base32 characters; the first 6 are kept
	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr[:6])

	return referralPrefix + "-" + randomStr, nil
}

// FormatMemberID renders the sequential member number as a public member id,
// e.g. sequence 42 becomes "ak000042"
func FormatMemberID(sequence int64) string {
	return fmt.Sprintf("ak%06d", sequence)
}

// ReferralLink builds the join link a member shares, carrying their code
func ReferralLink(baseURL, referralCode string) string {
	return fmt.Sprintf("%s?ref=%s", baseURL, referralCode)
}
