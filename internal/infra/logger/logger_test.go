package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"john.doe@example.com", "joh***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "not***"},
		{"ab", "***"},
	}

	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"192.168.10.42", "192.168.*.*"},
		{"2001:db8:85a3:8d3:1319:8a2e:370:7348", "2001:db8:85a3:8d3:*:*:*:*"},
		{"garbage", "***"},
	}

	for _, tc := range cases {
		if got := MaskIP(tc.in); got != tc.want {
			t.Errorf("MaskIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
