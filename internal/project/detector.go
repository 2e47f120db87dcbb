// Package project locates the journal workspace holding response and
// activity documents.
package project

import (
	"os"
	"path/filepath"
)

// Info describes a detected workspace.
type Info struct {
	Root         string
	ConfigFile   string
	HasResponses bool
	HasActivity  bool
	HasGit       bool
}

// configNames are the workspace config files, in lookup order.
var configNames = []string{".autonomyrc.json", ".autonomyrc.yaml", ".autonomyrc.yml"}

// dataDirs mark a workspace on their own.
var dataDirs = []string{"responses", "assessments", "activity", "activities"}

// FindRoot searches for a workspace root starting from startPath and
// climbing up the directory tree. Without a marker it returns startPath.
func FindRoot(startPath string) (string, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", err
	}

	currentDir := absPath
	for {
		if isRoot(currentDir) {
			return currentDir, nil
		}
		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		currentDir = parent
	}
	return absPath, nil
}

// isRoot reports whether path holds a config file, a data directory or a
// git checkout.
func isRoot(path string) bool {
	for _, name := range configNames {
		if fileExists(filepath.Join(path, name)) {
			return true
		}
	}
	for _, dir := range dataDirs {
		if dirExists(filepath.Join(path, dir)) {
			return true
		}
	}
	return dirExists(filepath.Join(path, ".git"))
}

// Detect reports what the workspace at rootPath contains.
func Detect(rootPath string) *Info {
	info := &Info{Root: rootPath}
	for _, name := range configNames {
		if fileExists(filepath.Join(rootPath, name)) {
			info.ConfigFile = name
			break
		}
	}
	info.HasResponses = dirExists(filepath.Join(rootPath, "responses")) || dirExists(filepath.Join(rootPath, "assessments"))
	info.HasActivity = dirExists(filepath.Join(rootPath, "activity")) || dirExists(filepath.Join(rootPath, "activities"))
	info.HasGit = dirExists(filepath.Join(rootPath, ".git"))
	return info
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
