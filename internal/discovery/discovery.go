package discovery

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	yamlv3 "gopkg.in/yaml.v3"
)

// Kind categorizes discovered documents
type Kind int

const (
	KindUnknown Kind = iota
	KindResponses
	KindActivity
)

// String returns the schema name of the kind.
func (k Kind) String() string {
	switch k {
	case KindResponses:
		return "responses"
	case KindActivity:
		return "activity"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "responses", "response", "assessment":
		return KindResponses, nil
	case "activity", "activities":
		return KindActivity, nil
	default:
		return KindUnknown, fmt.Errorf("invalid kind %q: valid kinds are responses, activity", s)
	}
}

// KindEntry defines the discovery patterns for a document kind.
type KindEntry struct {
	Kind     Kind
	Patterns []string
}

// DefaultKinds is the registry of document kinds and their patterns.
var DefaultKinds = []KindEntry{
	{Kind: KindResponses, Patterns: []string{"responses/**/*.{yaml,yml,json}", "assessments/**/*.{yaml,yml,json}"}},
	{Kind: KindActivity, Patterns: []string{"activity/**/*.{yaml,yml,json}", "activities/**/*.{yaml,yml,json}"}},
}

// activityKeys are the top-level keys that mark an activity document.
var activityKeys = []string{"reflections", "disconfirmGames", "schemaReclaims", "influenceSources", "argumentFlips", "sourceAudits"}

// DetectKind determines the kind of a document, first by its path relative
// to rootPath, then by its top-level keys.
func DetectKind(absPath, rootPath string, contents []byte) (Kind, error) {
	if rootPath != "" {
		if relPath, err := filepath.Rel(rootPath, absPath); err == nil {
			relPath = filepath.ToSlash(relPath)
			if !strings.HasPrefix(relPath, "..") {
				for _, entry := range DefaultKinds {
					for _, pattern := range entry.Patterns {
						if matched, _ := doublestar.Match(pattern, relPath); matched {
							return entry.Kind, nil
						}
					}
				}
			}
		}
	}

	var top map[string]any
	if err := yamlv3.Unmarshal(contents, &top); err != nil {
		return KindUnknown, fmt.Errorf("cannot determine kind of %s: %w", filepath.Base(absPath), err)
	}
	if _, ok := top["assessmentId"]; ok {
		return KindResponses, nil
	}
	for _, key := range activityKeys {
		if _, ok := top[key]; ok {
			return KindActivity, nil
		}
	}
	return KindUnknown, fmt.Errorf(
		"cannot determine kind: %s has neither assessmentId nor activity lists. Use --kind to specify (responses, activity)", filepath.Base(absPath))
}

// ValidateFilePath checks that path is a readable, non-empty text file and
// returns its absolute form.
func ValidateFilePath(path string) (absPath string, err error) {
	absPath, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", absPath)
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("permission denied: %s", absPath)
		}
		return "", fmt.Errorf("cannot access file: %s: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", absPath)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("file is empty: %s", absPath)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %s: %w", absPath, err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %s: %w", absPath, err)
	}
	if bytes.Contains(buf[:n], []byte{0}) {
		return "", fmt.Errorf("file appears to be binary, not text: %s", absPath)
	}

	return absPath, nil
}

// File represents a discovered document with its contents
type File struct {
	Path     string
	RelPath  string
	Kind     Kind
	Contents []byte
}

// FileDiscovery manages document discovery under one root
type FileDiscovery struct {
	rootPath string
}

func NewFileDiscovery(rootPath string) *FileDiscovery {
	return &FileDiscovery{rootPath: rootPath}
}

// DiscoverFiles finds every document matching DefaultKinds.
func (fd *FileDiscovery) DiscoverFiles() ([]File, error) {
	var files []File
	for _, entry := range DefaultKinds {
		found, err := fd.Glob(entry.Patterns...)
		if err != nil {
			return nil, fmt.Errorf("error discovering %s files: %w", entry.Kind, err)
		}
		for _, f := range found {
			f.Kind = entry.Kind
			files = append(files, f)
		}
	}
	return files, nil
}

// Glob returns the files matching any of patterns, sorted by relative path.
// A file's Kind is detected from its path and contents.
func (fd *FileDiscovery) Glob(patterns ...string) ([]File, error) {
	seen := make(map[string]bool)
	var files []File
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %s", pattern)
		}
		matches, err := doublestar.Glob(os.DirFS(fd.rootPath), pattern)
		if err != nil {
			return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			if f, ok := fd.processMatch(match); ok {
				files = append(files, f)
			}
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func (fd *FileDiscovery) processMatch(match string) (File, bool) {
	fullPath := filepath.Join(fd.rootPath, filepath.FromSlash(match))
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return File{}, false
	}
	contents, err := os.ReadFile(fullPath)
	if err != nil {
		return File{}, false
	}
	kind, _ := DetectKind(fullPath, fd.rootPath, contents)
	return File{
		Path:     fullPath,
		RelPath:  match,
		Kind:     kind,
		Contents: contents,
	}, true
}
