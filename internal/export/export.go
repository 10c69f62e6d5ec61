// Package export packages a collection database and its media into a
// single distributable archive: a deflate ZIP containing the database
// under a fixed name, a JSON manifest mapping string indices to original
// media filenames, and one entry per media payload named by its index.
package export

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/colmdoyle/ankibox/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Archive entry names fixed by the package format.
const (
	collectionEntry = "collection.anki2"
	manifestEntry   = "media"
)

// Attachment is a media payload supplied by the caller, bundled in
// addition to anything found in the database's media table.
type Attachment struct {
	Filename string
	Data     []byte
}

// Export writes the collection at dbPath plus all media to a package
// archive at dstPath. The staging directory is removed on every exit
// path; any failure wraps ErrExport with the causing condition and
// leaves no partial archive behind.
func Export(dbPath, dstPath string, attachments []Attachment) error {
	staging, err := os.MkdirTemp("", "ankibox-export-")
	if err != nil {
		return fmt.Errorf("%w: creating staging directory: %w", domain.ErrExport, err)
	}
	defer os.RemoveAll(staging)

	stagedDB := filepath.Join(staging, collectionEntry)
	if err := copyFile(dbPath, stagedDB); err != nil {
		return fmt.Errorf("%w: staging collection: %w", domain.ErrExport, err)
	}

	manifest := map[string]string{}
	var staged []string // archive entry names, in index order

	addPayload := func(filename string, data []byte) error {
		index := fmt.Sprintf("%d", len(manifest))
		if err := os.WriteFile(filepath.Join(staging, index), data, 0o644); err != nil {
			return err
		}
		manifest[index] = filename
		staged = append(staged, index)
		return nil
	}

	for _, att := range attachments {
		if err := addPayload(att.Filename, att.Data); err != nil {
			return fmt.Errorf("%w: staging attachment %q: %w", domain.ErrExport, att.Filename, err)
		}
	}

	if err := stageDatabaseMedia(stagedDB, addPayload); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrExport, err)
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("%w: encoding media manifest: %w", domain.ErrExport, err)
	}
	manifestPath := filepath.Join(staging, manifestEntry)
	if err := os.WriteFile(manifestPath, manifestJSON, 0o644); err != nil {
		return fmt.Errorf("%w: writing media manifest: %w", domain.ErrExport, err)
	}

	if err := writeArchive(dstPath, staging, staged); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("%w: %w", domain.ErrExport, err)
	}
	return nil
}

// stageDatabaseMedia extracts rows of the staged database's media table,
// if it has one, through the same payload path as caller attachments.
func stageDatabaseMedia(stagedDB string, addPayload func(string, []byte) error) error {
	conn, err := sql.Open("sqlite", stagedDB)
	if err != nil {
		return fmt.Errorf("opening staged collection: %w", err)
	}
	defer conn.Close()

	var name string
	err = conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'media'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking for media table: %w", err)
	}

	rows, err := conn.Query(`SELECT filename, data FROM media ORDER BY id`)
	if err != nil {
		return fmt.Errorf("reading media table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		var data []byte
		if err := rows.Scan(&filename, &data); err != nil {
			return fmt.Errorf("scanning media row: %w", err)
		}
		if err := addPayload(filename, data); err != nil {
			return fmt.Errorf("staging media %q: %w", filename, err)
		}
	}
	return rows.Err()
}

// writeArchive bundles the staged files into a deflate ZIP at dstPath.
// Entry order: collection, manifest, then payloads by index.
func writeArchive(dstPath, staging string, payloads []string) error {
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	zw := zip.NewWriter(out)
	entries := append([]string{collectionEntry, manifestEntry}, payloads...)
	for _, name := range entries {
		if err := addZipEntry(zw, filepath.Join(staging, name), name); err != nil {
			zw.Close()
			out.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening staged file %q: %w", name, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("adding archive entry %q: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("writing archive entry %q: %w", name, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
