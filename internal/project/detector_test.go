package project

import (
	"os"
	"path/filepath"
	"testing"
)

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

// sameDir compares two paths after resolving symlinks (macOS /var -> /private/var)
func sameDir(t *testing.T, got, want string) {
	t.Helper()
	absGot, err := filepath.EvalSymlinks(got)
	if err != nil {
		absGot, _ = filepath.Abs(got)
	}
	absWant, err := filepath.EvalSymlinks(want)
	if err != nil {
		absWant, _ = filepath.Abs(want)
	}
	if absGot != absWant {
		t.Errorf("FindRoot() = %v, want %v", absGot, absWant)
	}
}

// TestFindRoot tests workspace root detection climbing up the directory tree
func TestFindRoot(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (string, string) // returns (startPath, expectedRoot)
	}{
		{
			name: "finds root with responses directory",
			setupFunc: func(t *testing.T) (string, string) {
				tmpDir := t.TempDir()
				mustMkdir(t, filepath.Join(tmpDir, "responses", "2025"))
				return filepath.Join(tmpDir, "responses", "2025"), tmpDir
			},
		},
		{
			name: "finds root with config file",
			setupFunc: func(t *testing.T) (string, string) {
				tmpDir := t.TempDir()
				mustWrite(t, filepath.Join(tmpDir, ".autonomyrc.yaml"))
				subDir := filepath.Join(tmpDir, "notes", "deep")
				mustMkdir(t, subDir)
				return subDir, tmpDir
			},
		},
		{
			name: "finds root with .git directory",
			setupFunc: func(t *testing.T) (string, string) {
				tmpDir := t.TempDir()
				mustMkdir(t, filepath.Join(tmpDir, ".git"))
				subDir := filepath.Join(tmpDir, "journal")
				mustMkdir(t, subDir)
				return subDir, tmpDir
			},
		},
		{
			name: "a file named like a data dir is not a marker",
			setupFunc: func(t *testing.T) (string, string) {
				tmpDir := t.TempDir()
				subDir := filepath.Join(tmpDir, "plain")
				mustMkdir(t, subDir)
				mustWrite(t, filepath.Join(subDir, "activity"))
				return subDir, subDir
			},
		},
		{
			name: "nearest marker wins",
			setupFunc: func(t *testing.T) (string, string) {
				tmpDir := t.TempDir()
				inner := filepath.Join(tmpDir, "outer", "inner")
				mustMkdir(t, filepath.Join(inner, "activity"))
				mustMkdir(t, filepath.Join(tmpDir, "outer", ".git"))
				return inner, inner
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			startPath, expectedRoot := tt.setupFunc(t)
			got, err := FindRoot(startPath)
			if err != nil {
				t.Fatalf("FindRoot() error = %v", err)
			}
			sameDir(t, got, expectedRoot)
		})
	}
}

func TestDetect(t *testing.T) {
	tmpDir := t.TempDir()
	mustMkdir(t, filepath.Join(tmpDir, "assessments"))
	mustMkdir(t, filepath.Join(tmpDir, "activities"))
	mustWrite(t, filepath.Join(tmpDir, ".autonomyrc.json"))

	info := Detect(tmpDir)
	if info.Root != tmpDir {
		t.Errorf("Root = %s, want %s", info.Root, tmpDir)
	}
	if info.ConfigFile != ".autonomyrc.json" {
		t.Errorf("ConfigFile = %q", info.ConfigFile)
	}
	if !info.HasResponses || !info.HasActivity {
		t.Errorf("expected both data dirs, got %+v", info)
	}
	if info.HasGit {
		t.Error("HasGit should be false")
	}

	empty := Detect(t.TempDir())
	if empty.ConfigFile != "" || empty.HasResponses || empty.HasActivity {
		t.Errorf("empty workspace detected as %+v", empty)
	}
}
