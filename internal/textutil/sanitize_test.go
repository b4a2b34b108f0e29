package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"talk":              "talk",
		"  Q&A: part 1/2  ": "Q&A- part 1-2",
		`what?"<x>|`:        "whatx",
		"a\\b*c":            "a-b-c",
		"   ":               "",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
