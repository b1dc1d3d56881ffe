package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in, region, want string
	}{
		{"(650) 253-0000", "US", "+16502530000"},
		{"  ", "US", ""},
		{"not a number", "US", "not a number"},
		{"650-253-0000", "", "+16502530000"},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in, tc.region); got != tc.want {
			t.Errorf("NormalizeE164(%q, %q) = %q, want %q", tc.in, tc.region, got, tc.want)
		}
	}
}
