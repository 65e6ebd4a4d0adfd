// Package scanner discovers candidate documents under a set of root folders.
package scanner

import (
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/docindex/pkg/types"
)

// ErrRootNotDir is yielded when a root exists but is not a directory
var ErrRootNotDir = errors.New("root is not a directory")

// Scanner walks folder trees and yields files with a configured extension
type Scanner struct {
	extensions map[string]struct{}
	logger     *slog.Logger
}

// New creates a Scanner accepting the given extensions (".pdf", "docx", ...)
func New(extensions []string, logger *slog.Logger) *Scanner {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Scanner{extensions: exts, logger: logger}
}

// Accepts reports whether path has one of the configured extensions, case-insensitively
func (s *Scanner) Accepts(path string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Walk lazily yields absolute paths of matching files under root.
// A root that cannot be read yields a single error and ends the sequence.
// Unreadable subdirectories are logged and skipped. Files are never opened.
func (s *Scanner) Walk(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield("", err)
			return
		}

		info, err := os.Stat(abs)
		if err != nil {
			yield("", err)
			return
		}
		if !info.IsDir() {
			yield("", ErrRootNotDir)
			return
		}

		stopped := false
		walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == abs {
					return err
				}
				s.logger.Warn("skipping unreadable path", slog.String("path", path), slog.String("error", err.Error()))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				// Skip hidden directories
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() || !s.Accepts(path) {
				return nil
			}

			if !yield(path, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield("", walkErr)
		}
	}
}

// Scan collects matching files from every root. Roots that are missing or
// unreadable are reported with Accessible=false and a zero count.
func (s *Scanner) Scan(roots []string) ([]string, []types.FolderCount) {
	var files []string
	folders := make([]types.FolderCount, 0, len(roots))

	for _, root := range roots {
		fc := types.FolderCount{Root: root, Accessible: true}
		found := make([]string, 0)

		for path, err := range s.Walk(root) {
			if err != nil {
				s.logger.Warn("document root inaccessible", slog.String("root", root), slog.String("error", err.Error()))
				fc.Accessible = false
				found = found[:0]
				break
			}
			found = append(found, path)
		}

		fc.Count = len(found)
		files = append(files, found...)
		folders = append(folders, fc)

		s.logger.Info("scanned folder", slog.String("root", root), slog.Int("documents", fc.Count))
	}
	return files, folders
}
