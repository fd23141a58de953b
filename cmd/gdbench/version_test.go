package main

import "testing"

func TestGitDirty(t *testing.T) {
	defer func(prev string) { GitDirty = prev }(GitDirty)
	tests := []struct {
		in   string
		want bool
	}{
		{"0", false},
		{"", false},
		{"garbage", false},
		{"3", true},
		{" 12\n", true},
	}
	for _, tt := range tests {
		GitDirty = tt.in
		if got := gitDirty(); got != tt.want {
			t.Errorf("gitDirty() with GitDirty=%q = %v, want %v", tt.in, got, tt.want)
		}
	}
}
