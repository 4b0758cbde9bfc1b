// config/mlm.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// CommissionRates are the four shares a payment event is split into,
// expressed in percent. The four must sum to 100.
type CommissionRates struct {
	Sponsor    float64
	Career     float64
	Passive    float64
	SystemFund float64
}

// MLMConfig carries the domain parameters that vary per deployment: the
// commission split, the ancestor/descent depth bound and the member ceiling.
type MLMConfig struct {
	Rates             CommissionRates
	MaxDepth          int
	MaxCapacity       int64
	BalanceTolerance  int
	InactiveThreshold time.Duration
	ReferralBaseURL   string
}

// DefaultMLMConfig returns the stock deployment parameters
func DefaultMLMConfig() MLMConfig {
	return MLMConfig{
		Rates: CommissionRates{
			Sponsor:    10,
			Career:     25,
			Passive:    5,
			SystemFund: 60,
		},
		MaxDepth:          7,
		MaxCapacity:       100000,
		BalanceTolerance:  5,
		InactiveThreshold: 30 * 24 * time.Hour,
		ReferralBaseURL:   "https://kutbulzaman.com/join",
	}
}

// LoadMLMConfig reads the MLM parameters from the environment, falling back
// to the defaults for anything unset
func LoadMLMConfig() (MLMConfig, error) {
	cfg := DefaultMLMConfig()

	if v := os.Getenv("MLM_SPONSOR_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MLM_SPONSOR_RATE: %w", err)
		}
		cfg.Rates.Sponsor = rate
	}
	if v := os.Getenv("MLM_CAREER_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MLM_CAREER_RATE: %w", err)
		}
		cfg.Rates.Career = rate
	}
	if v := os.Getenv("MLM_PASSIVE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MLM_PASSIVE_RATE: %w", err)
		}
		cfg.Rates.Passive = rate
	}
	if v := os.Getenv("MLM_SYSTEM_FUND_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MLM_SYSTEM_FUND_RATE: %w", err)
		}
		cfg.Rates.SystemFund = rate
	}
	if v := os.Getenv("MLM_MAX_DEPTH"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil || depth < 1 {
			return cfg, fmt.Errorf("invalid MLM_MAX_DEPTH: %q", v)
		}
		cfg.MaxDepth = depth
	}
	if v := os.Getenv("MLM_MAX_CAPACITY"); v != "" {
		capacity, err := strconv.ParseInt(v, 10, 64)
		if err != nil || capacity < 1 {
			return cfg, fmt.Errorf("invalid MLM_MAX_CAPACITY: %q", v)
		}
		cfg.MaxCapacity = capacity
	}
	if v := os.Getenv("MLM_BALANCE_TOLERANCE"); v != "" {
		tolerance, err := strconv.Atoi(v)
		if err != nil || tolerance < 0 {
			return cfg, fmt.Errorf("invalid MLM_BALANCE_TOLERANCE: %q", v)
		}
		cfg.BalanceTolerance = tolerance
	}
	if v := os.Getenv("MLM_REFERRAL_BASE_URL"); v != "" {
		cfg.ReferralBaseURL = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	log.Printf("MLM config loaded: split %.0f/%.0f/%.0f/%.0f, maxDepth=%d, capacity=%d",
		cfg.Rates.Sponsor, cfg.Rates.Career, cfg.Rates.Passive, cfg.Rates.SystemFund,
		cfg.MaxDepth, cfg.MaxCapacity)

	return cfg, nil
}

// Validate checks the split covers the whole event amount
func (c MLMConfig) Validate() error {
	sum := c.Rates.Sponsor + c.Rates.Career + c.Rates.Passive + c.Rates.SystemFund
	if sum < 99.999 || sum > 100.001 {
		return fmt.Errorf("commission rates must sum to 100, got %.2f", sum)
	}
	if c.Rates.Sponsor < 0 || c.Rates.Career < 0 || c.Rates.Passive < 0 || c.Rates.SystemFund < 0 {
		return fmt.Errorf("commission rates must be non-negative")
	}
	return nil
}
