package main

import "testing"

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0", 0}, // id 0 is a valid point id
		{"42", 42},
		{" 7 ", 7},
		{"18446744073709551615", ^uint64(0)},
	}
	for _, tt := range tests {
		if got := parseID(tt.in); got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
