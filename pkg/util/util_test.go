package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithUserWritePermission(t *testing.T) {
	testCases := []struct {
		name     string
		input    os.FileMode
		expected os.FileMode
	}{
		{"Read-only permission", 0444, 0644},
		{"Already has write permission", 0755, 0755},
		{"No permissions", 0000, 0200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if result := WithUserWritePermission(tc.input); result != tc.expected {
				t.Errorf("expected permission %o, but got %o", tc.expected, result)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory available: %v", err)
	}

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Tilde only", "~", home},
		{"Tilde prefix", "~/Desktop/XenaDownloads", filepath.Join(home, "Desktop", "XenaDownloads")},
		{"Absolute path untouched", "/data/downloads", "/data/downloads"},
		{"Tilde inside name untouched", "~backup", "~backup"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExpandPath(tc.input)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInvertMap(t *testing.T) {
	inv := InvertMap(map[int]string{1: "one", 2: "two"})
	if inv["one"] != 1 || inv["two"] != 2 || len(inv) != 2 {
		t.Errorf("unexpected inverted map: %v", inv)
	}
}
