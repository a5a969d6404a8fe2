package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid strong password",
			password:   "SecurePass123",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "Pass1",
			shouldFail: true,
		},
		{
			name:       "missing uppercase",
			password:   "securepass123",
			shouldFail: true,
		},
		{
			name:       "missing lowercase",
			password:   "SECUREPASS123",
			shouldFail: true,
		},
		{
			name:       "missing digit",
			password:   "SecurePassXyz",
			shouldFail: true,
		},
		{
			name:       "common password rejected",
			password:   "password123",
			shouldFail: true,
		},
		{
			name:       "too long",
			password:   "Aa1" + strings.Repeat("x", 130),
			shouldFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail && err == nil {
				t.Errorf("ValidatePassword(%q) = nil, want error", tt.password)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("ValidatePassword(%q) = %v, want nil", tt.password, err)
			}
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecurePass123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}
	if hash == password {
		t.Fatal("hash must not equal the raw password")
	}

	if err := ComparePassword(hash, password); err != nil {
		t.Errorf("ComparePassword() = %v, want nil", err)
	}
	if err := ComparePassword(hash, "WrongPass123"); err == nil {
		t.Error("ComparePassword() = nil for wrong password, want error")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("HashPassword(\"\") = nil, want error")
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("GenerateOpaqueToken() = %v, want nil", err)
	}
	b, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("GenerateOpaqueToken() = %v, want nil", err)
	}
	if a == b {
		t.Error("two generated tokens are identical")
	}
	if len(a) < 40 {
		t.Errorf("token too short: %d chars", len(a))
	}
}
