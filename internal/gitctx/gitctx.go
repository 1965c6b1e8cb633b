// Package gitctx inspects and commits the publishing repository's working
// tree. Status prefers go-git and falls back to the git CLI.
package gitctx

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/fulmenhq/resload/internal/runner"
	"github.com/fulmenhq/resload/pkg/logger"
)

// DefaultTimeout bounds each git command.
const DefaultTimeout = 2 * time.Minute

// IndexPath is the generated index, always related to an ingest.
const IndexPath = "resources/index.html"

// ChangeSet splits pending worktree changes by whether they belong to slug.
type ChangeSet struct {
	Related   []string `json:"related"`
	Unrelated []string `json:"unrelated"`
	// Source is "go-git" or "cli".
	Source string `json:"source"`
}

// Clean reports whether nothing is pending.
func (c ChangeSet) Clean() bool { return len(c.Related) == 0 && len(c.Unrelated) == 0 }

// Classify sorts repo-relative paths into related and unrelated buckets.
// A path is related when it contains slug or names the resource index.
func Classify(paths []string, slug string) ChangeSet {
	var cs ChangeSet
	for _, p := range paths {
		p = filepath.ToSlash(strings.TrimSpace(p))
		switch {
		case p == "":
		case slug != "" && strings.Contains(p, slug):
			cs.Related = append(cs.Related, p)
		case strings.Contains(p, IndexPath):
			cs.Related = append(cs.Related, p)
		default:
			cs.Unrelated = append(cs.Unrelated, p)
		}
	}
	return cs
}

// Status reports pending changes in the repository at repo, classified
// against opts.Slug. The CLI fallback honours opts.Binary and opts.Timeout.
func Status(ctx context.Context, r runner.Runner, repo string, opts Options) (ChangeSet, error) {
	paths, err := statusGoGit(repo)
	if err == nil {
		cs := Classify(paths, opts.Slug)
		cs.Source = "go-git"
		return cs, nil
	}
	logger.Debug(fmt.Sprintf("gitctx: go-git status unavailable, using CLI: %v", err))

	if r == nil {
		return ChangeSet{}, fmt.Errorf("git status: no runner for CLI fallback")
	}
	res, err := r.Run(ctx, runner.Command{
		Name:    opts.binary(),
		Args:    []string{"status", "--porcelain"},
		Dir:     repo,
		Timeout: opts.timeout(),
	})
	if err != nil {
		return ChangeSet{}, fmt.Errorf("git status: %w", err)
	}
	if !res.Success() {
		return ChangeSet{}, fmt.Errorf("git status failed: %s", strings.TrimSpace(res.Stderr))
	}
	cs := Classify(ParsePorcelain(res.Stdout), opts.Slug)
	cs.Source = "cli"
	return cs, nil
}

func statusGoGit(target string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, err
	}
	var paths []string
	for path, s := range st {
		// Consider both staged and unstaged changes
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			paths = append(paths, filepath.ToSlash(path))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ParsePorcelain extracts paths from `git status --porcelain` output.
// Renames report their new path.
func ParsePorcelain(out string) []string {
	var paths []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 || len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		if unq, err := strconv.Unquote(path); err == nil {
			path = unq
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
