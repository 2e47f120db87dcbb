// Package export reads and writes the versioned backup bundle of one
// user's answers, profile history, badges, streak and activity.
package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/response"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/streak"
)

// Version is written into every bundle. Bundles with another major version
// are refused.
const Version = "2.1.0"

var (
	ErrIncompatibleVersion = errors.New("incompatible bundle version")
	ErrChecksumMismatch    = errors.New("bundle checksum mismatch")
)

// Bundle is the export payload. Unknown fields are ignored on read.
type Bundle struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exportedAt"`
	UserID     string                  `json:"userId"`
	Responses  []response.UserResponse `json:"responses,omitempty"`
	Profile    *scoring.Profile        `json:"profile"`
	History    []*scoring.Profile      `json:"history"`
	Badges     []badges.Badge          `json:"badges"`
	Streak     streak.Data             `json:"streak"`
	Activity   *activity.Log           `json:"activity,omitempty"`
	Milestones []activity.Milestone    `json:"milestones,omitempty"`
	Checksum   string                  `json:"checksum,omitempty"`
}

// New returns an empty bundle stamped with the current version.
func New(userID string, now time.Time) *Bundle {
	return &Bundle{Version: Version, ExportedAt: now.UTC(), UserID: userID}
}

// Fingerprint hashes the bundle contents without the checksum field.
func (b *Bundle) Fingerprint() (string, error) {
	c := *b
	c.Checksum = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Encode seals the bundle with its checksum and writes indented JSON.
func Encode(w io.Writer, b *Bundle) error {
	sum, err := b.Fingerprint()
	if err != nil {
		return err
	}
	b.Checksum = sum

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}

// Decode reads a bundle, checks its major version and, when present, its
// checksum.
func Decode(r io.Reader) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	if err := checkVersion(b.Version); err != nil {
		return nil, err
	}
	if b.Checksum != "" {
		sum, err := b.Fingerprint()
		if err != nil {
			return nil, err
		}
		if sum != b.Checksum {
			return nil, ErrChecksumMismatch
		}
	}
	return &b, nil
}

// Save writes the bundle to path.
func Save(b *Bundle, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write bundle file: %w", err)
	}
	return nil
}

// Load reads a bundle from path.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func checkVersion(v string) error {
	got, err := major(v)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrIncompatibleVersion, v)
	}
	want, _ := major(Version)
	if got != want {
		return fmt.Errorf("%w: bundle is %s, expected %d.x", ErrIncompatibleVersion, v, want)
	}
	return nil
}

func major(v string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	return strconv.Atoi(head)
}
