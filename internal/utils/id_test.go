package utils

import "testing"

func TestParseID(t *testing.T) {
	cases := []struct {
		s    string
		want uint
		ok   bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0012", 12, true},

		{"", 0, false},
		{"0", 0, false},
		{"-3", 0, false},
		{"+3", 0, false},
		{" 42", 0, false},
		{"4.2", 0, false},
		{"abc", 0, false},
		// overflow
		{"999999999999999999999999", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseID(tc.s)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseID(%q) = (%d, %v); want (%d, %v)", tc.s, got, ok, tc.want, tc.ok)
		}
	}
}
