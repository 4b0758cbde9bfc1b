package utils

import "testing"

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"  User@Example.COM ", "user@example.com", false},
		{"plain", "", true},
		{"a@b", "", true},
		{"ok@domain.org", "ok@domain.org", false},
	}
	for _, tt := range tests {
		got, err := SanitizeEmail(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SanitizeEmail(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"+90 532 123 45 67", "+905321234567", false},
		{"905321234567", "+905321234567", false},
		{"123", "", true},
	}
	for _, tt := range tests {
		got, err := SanitizePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SanitizePhone(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SanitizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"short1", true},
		{"onlyletters", true},
		{"12345678", true},
		{"secure12", false},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
