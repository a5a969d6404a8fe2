package logger

import "testing"

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@b.io", "a@*.io"},
		{"not-an-email", "[invalid-email]"},
	}

	for _, tt := range tests {
		if got := SanitizedEmail(tt.email); got != tt.want {
			t.Errorf("SanitizedEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		rawQuery string
		want     bool
	}{
		{"token=abc123", true},
		{"password=hunter2", true},
		{"email=user%40example.com", true},
		{"offset=0&limit=50&sort=az", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := SanitizeQueryString(tt.rawQuery); got != tt.want {
			t.Errorf("SanitizeQueryString(%q) = %v, want %v", tt.rawQuery, got, tt.want)
		}
	}
}
