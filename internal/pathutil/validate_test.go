package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestResolveWithin(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "data"), 0700); err != nil {
		t.Fatal(err)
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		path        string
		want        string
		errContains string
	}{
		{"relative file", "long.csv", filepath.Join(rootResolved, "long.csv"), ""},
		{"relative in subdir", "data/long.csv", filepath.Join(rootResolved, "data", "long.csv"), ""},
		{"missing subdirs", "new/deeper/long.csv", filepath.Join(rootResolved, "new", "deeper", "long.csv"), ""},
		{"absolute inside", filepath.Join(root, "data", "x.csv"), filepath.Join(rootResolved, "data", "x.csv"), ""},
		{"root itself", root, rootResolved, ""},
		{"dot-dot escape", "../escape.csv", "", "outside the project root"},
		{"nested dot-dot escape", "data/../../escape.csv", "", "outside the project root"},
		{"absolute outside", filepath.Join(other, "x.csv"), "", "outside the project root"},
		{"empty", "", "", "empty"},
		{"null byte", "long\x00.csv", "", "null byte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(tt.path, root)
			if tt.errContains != "" {
				if err == nil {
					t.Fatalf("ResolveWithin(%q) = %q, want error", tt.path, got)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveWithin(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("ResolveWithin(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveWithin_NoRoot(t *testing.T) {
	if err := ValidateWithin("x.csv", ""); err == nil {
		t.Error("expected error without a root")
	}
}

func TestResolveWithin_SymlinkOutsideRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "out")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	err := ValidateWithin(filepath.Join("out", "long.csv"), root)
	if err == nil {
		t.Fatal("expected error for symlink escaping the root")
	}
	if !strings.Contains(err.Error(), "outside the project root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveWithin_SymlinkInsideRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := t.TempDir()
	real := filepath.Join(root, "real")
	if err := os.MkdirAll(real, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(real, filepath.Join(root, "alias")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := ValidateWithin(filepath.Join("alias", "long.csv"), root); err != nil {
		t.Errorf("symlink inside root rejected: %v", err)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"/home/user/trial/data/long.csv", ".../data/long.csv"},
		{"long.csv", "long.csv"},
		{"/long.csv", "long.csv"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.path); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
