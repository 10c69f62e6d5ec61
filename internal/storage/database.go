// Package storage is the relational layer over a single collection
// database: the singleton col row with its embedded documents, notes,
// cards, the append-only review log, deletion tombstones and media
// blobs. One DB instance expects a single writer; callers needing
// concurrent access must serialize externally.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colmdoyle/ankibox/internal/checksum"
	"github.com/colmdoyle/ankibox/internal/collection"
	"github.com/colmdoyle/ankibox/internal/ident"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the collection database connection together with the id
// generator and checksum function the store stamps onto new rows.
type DB struct {
	conn *sql.DB
	path string
	ids  *ident.Generator
	csum checksum.Func
	now  func() time.Time
}

// Options customizes collaborators injected into the store. Zero values
// select the defaults: SHA256Head checksums and the system clock.
type Options struct {
	Checksum checksum.Func
	Now      func() time.Time
	IDs      *ident.Generator
}

// Open creates a collection database connection with default options,
// applies the schema and bootstraps the singleton col row if absent.
func Open(path string) (*DB, error) {
	return OpenOptions(path, Options{})
}

// OpenOptions is Open with injected collaborators, for tests and for
// callers needing the ByteSum interop checksum.
func OpenOptions(path string, opts Options) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
		ids:  opts.IDs,
		csum: opts.Checksum,
		now:  opts.Now,
	}
	if db.ids == nil {
		db.ids = ident.New()
	}
	if db.csum == nil {
		db.csum = checksum.SHA256Head
	}
	if db.now == nil {
		db.now = time.Now
	}

	if err := db.bootstrapCollection(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the collection database file path.
func (db *DB) Path() string {
	return db.path
}

// Checksum computes the store's configured checksum of a sort field.
func (db *DB) Checksum(sortField string) uint32 {
	return db.csum(sortField)
}

// bootstrapCollection inserts the singleton col row with the default
// deck, deck config and preferences when the collection is fresh.
func (db *DB) bootstrapCollection() error {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM col`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check collection row: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := db.now().Unix()

	confJSON, err := marshalJSON(collection.DefaultConf())
	if err != nil {
		return err
	}
	decks := collection.Decks{}
	decks.Add(collection.DefaultDeck(now))
	decksJSON, err := decks.Marshal()
	if err != nil {
		return err
	}
	dconf := collection.DeckConfigs{"1": collection.DefaultDeckConfig(now)}
	dconfJSON, err := dconf.Marshal()
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(`
		INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, ?, 0, 0, 0, ?, '{}', ?, ?, '{}')
	`, now, now, now*1000, collectionVersion, confJSON, decksJSON, dconfJSON)
	if err != nil {
		return fmt.Errorf("failed to initialize collection: %w", err)
	}
	return nil
}

// touchCollection bumps the collection modification time inside tx.
func touchCollection(tx *sql.Tx, mod int64) error {
	if _, err := tx.Exec(`UPDATE col SET mod = ? WHERE id = 1`, mod); err != nil {
		return fmt.Errorf("failed to bump collection mod time: %w", err)
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode collection document: %w", err)
	}
	return string(b), nil
}
