package main

import "testing"

func TestParseRange(t *testing.T) {
	cases := []struct {
		in         string
		begin, end int64
		wantErr    bool
	}{
		{"10-20", 10, 20, false},
		{"-20", 0, 20, false},
		{"10-", 10, -1, false},
		{"42", 42, 43, false},
		{"", 0, 0, true},
		{"abc", 0, 0, true},
		{"10-abc", 0, 0, true},
	}

	for _, c := range cases {
		begin, end, err := parseRange(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseRange(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseRange(%q): unexpected error: %v", c.in, err)
			continue
		}
		if begin != c.begin || end != c.end {
			t.Errorf("parseRange(%q) = (%d, %d), want (%d, %d)", c.in, begin, end, c.begin, c.end)
		}
	}
}
