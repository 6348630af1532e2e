package observability_test

import (
	"testing"

	"github.com/pamperspets/petshaus/internal/observability"
)

func TestEmailDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ana@x.com", "x.com"},
		{"ANA@GMAIL.COM", "gmail.com"},
		{"no-at-sign", "invalid"},
		{"", "invalid"},
	}

	for _, tc := range cases {
		if got := observability.EmailDomain(tc.in); got != tc.want {
			t.Errorf("EmailDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
