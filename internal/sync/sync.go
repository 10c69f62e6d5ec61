// Package sync imports markdown deck sources into the collection. Each
// source is a local directory or a git URL; parsed entries are added as
// notes, skipping any whose sort-field checksum already exists in the
// collection.
package sync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/colmdoyle/ankibox/internal/gitsource"
	"github.com/colmdoyle/ankibox/internal/parser"
	"github.com/colmdoyle/ankibox/internal/storage"
)

// Importer reconciles deck sources into one model/deck of a collection.
type Importer struct {
	DB       *storage.DB
	ModelID  int64
	DeckID   int64
	ReposDir string // working area for git clones
}

// Stats summarizes one import run.
type Stats struct {
	Parsed     int
	Added      int
	Duplicates int
	Errors     []error
}

// Run imports every source in order. Git sources (URLs or paths ending
// in .git) are cloned or pulled first; all sources then walk as local
// directories. Per-file errors are collected, not fatal.
func (im *Importer) Run(sources []string) Stats {
	var stats Stats
	for _, source := range sources {
		path := source
		if IsGitSource(source) {
			localPath, err := gitPath(im.ReposDir, source)
			if err != nil {
				stats.Errors = append(stats.Errors, err)
				continue
			}
			if err := gitsource.Sync(source, localPath); err != nil {
				stats.Errors = append(stats.Errors, err)
				continue
			}
			path = localPath
		}
		im.importDir(path, &stats)
	}
	slog.Info("import complete",
		"parsed", stats.Parsed,
		"added", stats.Added,
		"duplicates", stats.Duplicates,
		"errors", len(stats.Errors),
	)
	return stats
}

func (im *Importer) importDir(dir string, stats *Stats) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		notes, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, note := range notes {
			stats.Parsed++
			if err := im.importNote(note, stats); err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("importing from %s: %w", path, err))
			}
		}
		return nil
	})
	if walkErr != nil {
		stats.Errors = append(stats.Errors, fmt.Errorf("walking %s: %w", dir, walkErr))
	}
}

// importNote adds one parsed entry unless a note with the same
// sort-field checksum already exists.
func (im *Importer) importNote(note parser.NoteInput, stats *Stats) error {
	existing, err := im.DB.FindNotesByChecksum(im.DB.Checksum(note.Question()))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		stats.Duplicates++
		slog.Debug("skipping duplicate note", "question", note.Question())
		return nil
	}

	if _, err := im.DB.AddNote(im.ModelID, im.DeckID, note.Fields, note.Tags); err != nil {
		return err
	}
	stats.Added++
	return nil
}

// IsGitSource reports whether a source string names a git repository
// rather than a local directory.
func IsGitSource(source string) bool {
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// gitPath maps a repository URL to its local clone directory under
// baseDir, keyed by host and repository path.
func gitPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	// scp-style: git@host:owner/repo.git
	if at := strings.Index(repoURL, "@"); at >= 0 {
		rest := repoURL[at+1:]
		if host, repoPath, ok := strings.Cut(rest, ":"); ok {
			return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
