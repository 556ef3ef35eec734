package mail

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "al***@example.com"},
		{"bob.smith@corp.example.org", "bo***@corp.example.org"},
		{"a@example.com", "a***@example.com"},
		{"ab@example.com", "a***@example.com"},
		{"no-at-sign", "***"},
		{"", "***"},
	}
	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
