package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"formatted mobile", "(11) 98765-4321", "+5511987654321"},
		{"bare digits", "11987654321", "+5511987654321"},
		{"already e164", "+5511987654321", "+5511987654321"},
		{"foreign number kept", "+31612345678", "+31612345678"},
		{"garbage returned trimmed", "  not-a-phone  ", "not-a-phone"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.input); got != tc.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
