package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "plots")
	outside := filepath.Join(tmpDir, "outside")
	for _, d := range []string{safeDir, outside} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	link := filepath.Join(safeDir, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(safeDir, "road-1-profile.png"), false},
		{"nested missing dir", filepath.Join(safeDir, "a", "b", "c.png"), false},
		{"dot dot", filepath.Join(safeDir, "..", "x.png"), true},
		{"absolute outside", "/etc/passwd", true},
		{"through symlink", filepath.Join(link, "x.png"), true},
		{"symlink itself", link, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safeDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"road-1", "road-1"},
		{"road 1/pipe 2", "road_1_pipe_2"},
		{"../../etc", "etc"},
		{"a+b", "a_b"},
		{"", "unknown"},
		{"///", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("x", 500)); len(got) != maxFilenameLen {
		t.Errorf("long name has length %d, want %d", len(got), maxFilenameLen)
	}
}

func TestSafeJoin(t *testing.T) {
	dir := t.TempDir()
	p, err := SafeJoin(dir, "../road-1+road-2.png")
	if err != nil {
		t.Fatalf("SafeJoin: %v", err)
	}
	if want := filepath.Join(dir, "road-1_road-2.png"); p != want {
		t.Errorf("SafeJoin = %q, want %q", p, want)
	}
}
