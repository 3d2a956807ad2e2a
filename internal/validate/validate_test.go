package validate

import "testing"

func TestIntInRange(t *testing.T) {
	cases := []struct {
		text      string
		low, high int
		want      bool
	}{
		{"", 0, 10, true}, // field being cleared
		{"0", 0, 10, true},
		{"10", 0, 10, true},
		{"11", 0, 10, false},
		{"-1", 0, 10, false},
		{"5", 1, 12, true},
		{"12", 1, 12, true},
		{"13", 1, 12, false},
		{"59000", 0, 59000, true},
		{"59001", 0, 59000, false},
		{"0500", 0, 59000, true}, // legacy zero-padded entry
		{"abc", 0, 10, false},
		{"1.5", 0, 10, false},
		{"1e3", 0, 10, false},
		{" 5", 0, 10, false},
		{"1000000", 0, 1000000, true},
		{"1000001", 0, 1000000, false},
	}
	for _, tc := range cases {
		if got := IntInRange(tc.text, tc.low, tc.high); got != tc.want {
			t.Errorf("IntInRange(%q, %d, %d) = %v, want %v", tc.text, tc.low, tc.high, got, tc.want)
		}
	}
}
