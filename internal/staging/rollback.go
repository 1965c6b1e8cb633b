package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
	"github.com/fulmenhq/resload/pkg/safeio"
)

// Rollback undoes a staging session: staged destinations are removed,
// snapshots are restored, and a rendered artifact that was not captured
// before staging is deleted, as are destination directories the session
// created once they are empty. It keeps going past individual failures and
// returns them joined. A rolled-back or empty session is a no-op.
func Rollback(s *Session, sink logger.Sink) error {
	if sink == nil {
		sink = logger.Discard
	}
	if s == nil || s.RolledBack {
		return nil
	}
	sink.Emit("Rolling back changes...", logger.WarnLevel)

	var errs []error
	for _, p := range s.Staged {
		if !safeio.Exists(p) {
			continue
		}
		if err := os.Remove(p); err != nil {
			sink.Emit(fmt.Sprintf("Failed to remove %s: %v", filepath.Base(p), err), logger.ErrorLevel)
			errs = append(errs, err)
			continue
		}
		sink.Emit("Removed: "+filepath.Base(p), logger.InfoLevel)
	}

	paths := make([]string, 0, len(s.Snapshots))
	for p := range s.Snapshots {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := restore(p, s.Snapshots[p], s.backupMode(p)); err != nil {
			sink.Emit(fmt.Sprintf("Failed to restore %s: %v", filepath.Base(p), err), logger.ErrorLevel)
			errs = append(errs, err)
			continue
		}
		sink.Emit("Restored: "+filepath.Base(p), logger.InfoLevel)
	}

	if s.Slug != "" {
		rendered := s.Rendered()
		if safeio.Exists(rendered) && !s.HasSnapshot(rendered) {
			if err := os.Remove(rendered); err != nil {
				errs = append(errs, err)
			} else {
				sink.Emit("Removed generated: "+filepath.Base(rendered), logger.InfoLevel)
			}
		}
	}

	for i := len(s.CreatedDirs) - 1; i >= 0; i-- {
		dir := s.CreatedDirs[i]
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if len(entries) > 0 {
			sink.Emit("Kept non-empty directory: "+dir, logger.InfoLevel)
			continue
		}
		if err := os.Remove(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		sink.Emit("Removed directory: "+dir, logger.InfoLevel)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.Staged = nil
	s.CreatedDirs = nil
	s.Snapshots = map[string][]byte{}
	s.Backups = nil
	s.RolledBack = true
	if s.WorkDir != "" && safeio.Exists(s.WorkDir) {
		if err := s.Save(); err != nil {
			return err
		}
		_ = os.RemoveAll(filepath.Join(s.WorkDir, BackupDir))
	}
	sink.Emit("Rollback complete", logger.WarnLevel)
	return nil
}

func restore(path string, data []byte, mode os.FileMode) error {
	if err := config.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return err
	}
	// WriteFile keeps the mode of a file that still exists
	return os.Chmod(path, mode)
}

// Cleanup deletes the working directory unless the session asked to keep
// it; force deletes regardless.
func Cleanup(s *Session, force bool, sink logger.Sink) error {
	if sink == nil {
		sink = logger.Discard
	}
	if s == nil || s.WorkDir == "" || !safeio.Exists(s.WorkDir) {
		return nil
	}
	if s.Keep && !force {
		sink.Emit("Keeping temp bundle for inspection: "+s.WorkDir, logger.InfoLevel)
		return nil
	}
	if err := contained(s.Layout.Tmp, s.WorkDir); err != nil {
		return err
	}
	if err := os.RemoveAll(s.WorkDir); err != nil {
		sink.Emit(fmt.Sprintf("Failed to clean up temp bundle: %v", err), logger.WarnLevel)
		return fmt.Errorf("failed to clean up %s: %w", s.WorkDir, err)
	}
	sink.Emit("Cleaned up temp bundle: "+filepath.Base(s.WorkDir), logger.InfoLevel)
	return nil
}

// contained refuses to delete anything outside the configured tmp root.
func contained(root, dir string) error {
	if root == "" {
		return fmt.Errorf("refusing to remove %s: no tmp root recorded", dir)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s: not inside %s", dir, root)
	}
	return nil
}

// PreserveFailed copies the rendered artifact and the staged document for
// slug into the last_failed directory and returns the copies made.
func PreserveFailed(layout config.Paths, slug string, sink logger.Sink) ([]string, error) {
	if sink == nil {
		sink = logger.Discard
	}
	dir := layout.LastFailed()
	if err := config.EnsureDir(dir); err != nil {
		return nil, err
	}
	sink.Emit("=== Preserving Failed Artifacts (Debug Mode) ===", logger.WarnLevel)

	var saved []string
	for _, src := range []string{layout.Rendered(slug), layout.Document(slug)} {
		if !safeio.Exists(src) {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(src))
		if err := safeio.CopyFile(src, dst); err != nil {
			return saved, fmt.Errorf("preserve %s: %w", filepath.Base(src), err)
		}
		saved = append(saved, dst)
		sink.Emit("  Saved: "+dst, logger.WarnLevel)
	}
	return saved, nil
}
