// Package staging writes a validated bundle to its destination paths through
// an isolated working directory, keeping enough state to undo the write.
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/safeio"
)

const (
	// SessionFile is the bookkeeping file inside a working directory.
	SessionFile = "session.json"
	// BackupDir holds snapshot bytes inside a working directory.
	BackupDir = "backup"

	timestampLayout = "20060102_150405"
)

// Session is the bookkeeping of one staging attempt.
type Session struct {
	ID        string       `json:"id"`
	Slug      string       `json:"slug"`
	WorkDir   string       `json:"work_dir"`
	Created   time.Time    `json:"created"`
	Keep      bool         `json:"keep"`
	Injected  bool         `json:"injected,omitempty"`
	HeroExt   string       `json:"hero_ext"`
	InlineExt string       `json:"inline_ext"`
	Layout    config.Paths `json:"layout"`

	// Staged lists the destination paths written by this session.
	Staged []string `json:"staged"`
	// CreatedDirs lists destination directories this session created,
	// outermost first.
	CreatedDirs []string `json:"created_dirs,omitempty"`
	// Backups index the snapshot files under BackupDir.
	Backups []Backup `json:"backups,omitempty"`
	// RolledBack is set once Rollback has completed.
	RolledBack bool `json:"rolled_back,omitempty"`

	// Snapshots maps a destination path to its bytes before the session overwrote it.
	Snapshots map[string][]byte `json:"-"`
}

// Backup is one persisted snapshot.
type Backup struct {
	Dest string      `json:"dest"`
	File string      `json:"file"` // relative to WorkDir
	Mode fs.FileMode `json:"mode"`
}

// Document returns the destination document path.
func (s *Session) Document() string { return s.Layout.Document(s.Slug) }

// Hero returns the destination hero image path.
func (s *Session) Hero() string { return s.Layout.HeroImage(s.Slug, s.HeroExt) }

// Inline returns the destination inline image path.
func (s *Session) Inline() string { return s.Layout.InlineImage(s.Slug, s.InlineExt) }

// Rendered returns the generated artifact path.
func (s *Session) Rendered() string { return s.Layout.Rendered(s.Slug) }

// HasSnapshot reports whether path was captured before being overwritten.
func (s *Session) HasSnapshot(path string) bool {
	_, ok := s.Snapshots[path]
	return ok
}

// IsEmpty reports whether the session has nothing to undo.
func (s *Session) IsEmpty() bool {
	return s == nil || (len(s.Staged) == 0 && len(s.Snapshots) == 0)
}

// newSession creates a uniquely named working directory under tmpRoot.
func newSession(layout config.Paths, slug string, now time.Time) (*Session, error) {
	if err := config.EnsureDir(layout.Tmp); err != nil {
		return nil, err
	}
	base := fmt.Sprintf("%s-%s", slug, now.Format(timestampLayout))
	id := base
	for n := 2; ; n++ {
		dir := filepath.Join(layout.Tmp, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return &Session{
				ID:        id,
				Slug:      slug,
				WorkDir:   dir,
				Created:   now,
				Layout:    layout,
				Snapshots: map[string][]byte{},
			}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create working directory %s: %w", dir, err)
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// addSnapshot records prior bytes of dest in memory and under BackupDir.
func (s *Session) addSnapshot(dest string, data []byte, mode fs.FileMode) error {
	dir := filepath.Join(s.WorkDir, BackupDir)
	if err := config.EnsureDir(dir); err != nil {
		return err
	}
	rel := filepath.Join(BackupDir, fmt.Sprintf("%02d-%s", len(s.Backups)+1, filepath.Base(dest)))
	if err := os.WriteFile(filepath.Join(s.WorkDir, rel), data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup of %s: %w", filepath.Base(dest), err)
	}
	s.Snapshots[dest] = data
	s.Backups = append(s.Backups, Backup{Dest: dest, File: filepath.ToSlash(rel), Mode: mode.Perm()})
	return nil
}

// Save writes session.json into the working directory.
func (s *Session) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	path := filepath.Join(s.WorkDir, SessionFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Open reloads a session persisted in workDir, snapshot bytes included.
func Open(workDir string) (*Session, error) {
	path := filepath.Join(workDir, SessionFile)
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied session directory
	if err != nil {
		return nil, fmt.Errorf("cannot open session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	if s.Slug == "" {
		return nil, fmt.Errorf("invalid %s: no slug recorded", path)
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, err
	}
	s.WorkDir = abs

	s.Snapshots = make(map[string][]byte, len(s.Backups))
	for _, b := range s.Backups {
		raw, err := safeio.ReadFileContained(s.WorkDir, filepath.Join(s.WorkDir, filepath.FromSlash(b.File)))
		if err != nil {
			return nil, fmt.Errorf("cannot read backup of %s: %w", b.Dest, err)
		}
		s.Snapshots[b.Dest] = raw
	}
	return &s, nil
}

func (s *Session) backupMode(dest string) fs.FileMode {
	for _, b := range s.Backups {
		if b.Dest == dest && b.Mode != 0 {
			return b.Mode
		}
	}
	return 0o644
}
