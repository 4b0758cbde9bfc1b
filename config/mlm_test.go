package config

import "testing"

func TestMLMConfigValidate(t *testing.T) {
	cfg := DefaultMLMConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	cfg.Rates.Sponsor = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("split summing to 110 accepted")
	}
}

func TestLoadMLMConfigOverrides(t *testing.T) {
	t.Setenv("MLM_SPONSOR_RATE", "15")
	t.Setenv("MLM_SYSTEM_FUND_RATE", "55")
	t.Setenv("MLM_MAX_DEPTH", "5")

	cfg, err := LoadMLMConfig()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Rates.Sponsor != 15 || cfg.Rates.SystemFund != 55 {
		t.Errorf("rates = %+v", cfg.Rates)
	}
	if cfg.MaxDepth != 5 {
		t.Errorf("maxDepth = %d, want 5", cfg.MaxDepth)
	}
}

func TestLoadMLMConfigRejectsBadValues(t *testing.T) {
	t.Setenv("MLM_MAX_DEPTH", "0")
	if _, err := LoadMLMConfig(); err == nil {
		t.Fatal("maxDepth 0 accepted")
	}
}
