// Package sourcetree produces the filtered source snapshot a build runs
// against: only files relevant to the declared package, with build outputs,
// VCS metadata and ignored assets stripped. The snapshot is a copy; the
// original project directory is never touched.
package sourcetree

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/manifest"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Snapshot is an immutable filtered copy of a project directory, valid for a
// single build invocation.
type Snapshot struct {
	// Dir is the snapshot root, containing the manifest and source files.
	Dir string
	// Commit is the HEAD commit hash when the project is a git repository,
	// otherwise empty. Recorded in build info only; it never feeds the
	// dependency fingerprint.
	Commit string
}

// Extractor copies a project directory into a snapshot, applying the
// exclusion rules.
type Extractor struct {
	excludeDirs map[string]struct{}
}

// Directory names that never belong in a source snapshot.
var defaultExcludedDirs = []string{
	".git", ".hg", ".svn", ".jj",
	"target", "dist", "build", "out",
	"node_modules", ".cache",
}

// NewExtractor creates an extractor. Extra directory names to exclude (e.g.
// the configured output directory) may be passed in addition to the defaults.
func NewExtractor(extraExclude ...string) *Extractor {
	ex := &Extractor{excludeDirs: make(map[string]struct{})}
	for _, name := range defaultExcludedDirs {
		ex.excludeDirs[name] = struct{}{}
	}
	for _, name := range extraExclude {
		if name = strings.TrimSpace(name); name != "" {
			ex.excludeDirs[filepath.Base(name)] = struct{}{}
		}
	}
	return ex
}

// Extract copies the filtered contents of root into destDir and returns the
// snapshot. It fails when root has no recognizable project manifest.
func (e *Extractor) Extract(root, destDir string) (*Snapshot, error) {
	if _, err := os.Stat(filepath.Join(root, manifest.FileName)); err != nil {
		if os.IsNotExist(err) {
			return nil, &manifest.NotFoundError{Dir: root}
		}
		return nil, fmt.Errorf("stat manifest: %w", err)
	}

	matcher := loadIgnoreMatcher(root)

	files := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if _, skip := e.excludeDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.Match(splitPath(rel), true) {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(destDir, rel), 0o750)
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if matcher != nil && matcher.Match(splitPath(rel), false) {
			return nil
		}

		if err := copyFile(path, filepath.Join(destDir, rel)); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		files++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract source tree: %w", err)
	}

	snap := &Snapshot{Dir: destDir, Commit: headCommit(root)}
	slog.Debug("Extracted source snapshot",
		logfields.Path(destDir),
		slog.Int("files", files),
		slog.String("commit", snap.Commit))
	return snap, nil
}

// loadIgnoreMatcher reads .gitignore patterns from the project tree. A project
// without any patterns (or without git at all) gets a nil matcher.
func loadIgnoreMatcher(root string) gitignore.Matcher {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil || len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

func splitPath(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}
