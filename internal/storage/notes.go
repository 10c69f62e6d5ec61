package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colmdoyle/ankibox/internal/domain"
)

// AddNote inserts one note plus one card per template of its model, all
// in a single transaction. Field count must match the model
// (ErrSchemaMismatch), field values must not contain the reserved
// separator byte, and both model and deck must exist (ErrNotFound).
// Returns the new note id.
func (db *DB) AddNote(modelID, deckID int64, fields []string, tags []string) (int64, error) {
	models, err := db.Models()
	if err != nil {
		return 0, err
	}
	model, ok := models.Get(modelID)
	if !ok {
		return 0, fmt.Errorf("model %d: %w", modelID, domain.ErrNotFound)
	}
	decks, err := db.Decks()
	if err != nil {
		return 0, err
	}
	if _, ok := decks.Get(deckID); !ok {
		return 0, fmt.Errorf("deck %d: %w", deckID, domain.ErrNotFound)
	}

	if len(fields) != model.FieldCount() {
		return 0, fmt.Errorf("%w: note has %d fields, model %q wants %d",
			domain.ErrSchemaMismatch, len(fields), model.Name, model.FieldCount())
	}
	for i, f := range fields {
		if strings.Contains(f, domain.FieldSep) {
			return 0, fmt.Errorf("%w: field %d contains the reserved separator byte", domain.ErrSchemaMismatch, i)
		}
	}

	now := db.now().Unix()
	noteID := db.ids.NextID()
	flds := strings.Join(fields, domain.FieldSep)
	sfld := fields[0]

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// An existing row with identical fields is a no-op; a conflicting
	// one is surfaced rather than overwritten.
	var existing string
	err = tx.QueryRow(`SELECT flds FROM notes WHERE id = ?`, noteID).Scan(&existing)
	switch {
	case err == nil && existing == flds:
		return noteID, nil
	case err == nil:
		return 0, fmt.Errorf("note %d: %w", noteID, domain.ErrDuplicateID)
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to check note %d: %w", noteID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, -1, ?, ?, ?, ?, 0, '')
	`, noteID, uuid.NewString(), modelID, now, joinTags(tags), flds, sfld, int64(db.csum(sfld)))
	if err != nil {
		return 0, fmt.Errorf("failed to insert note: %w", err)
	}

	// New cards queue behind the deck's current tail position.
	var pos int64
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(due), 0) FROM cards WHERE did = ? AND queue = ?
	`, deckID, domain.QueueNew).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to find new-card position: %w", err)
	}

	for _, tmpl := range model.Templates {
		pos++
		_, err = tx.Exec(`
			INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
			VALUES (?, ?, ?, ?, ?, -1, ?, ?, ?, 0, ?, 0, 0, 0, 0, 0, 0, '')
		`, db.ids.NextID(), noteID, deckID, tmpl.Ord, now,
			domain.CardTypeNew, domain.QueueNew, pos, domain.InitialFactor)
		if err != nil {
			return 0, fmt.Errorf("failed to insert card for template %d: %w", tmpl.Ord, err)
		}
	}

	if err := touchCollection(tx, now); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit note: %w", err)
	}
	return noteID, nil
}

// DueCard is one reviewable entry returned by DueCards.
type DueCard struct {
	CardID int64
	Queue  int
	Fields []string
}

// DueCards returns all new-queue cards plus review-queue cards whose due
// day is at or before asOf. Ordering beyond queue grouping (new first)
// is unspecified.
func (db *DB) DueCards(asOf time.Time) ([]DueCard, error) {
	today := asOf.UTC().Unix() / 86400
	rows, err := db.conn.Query(`
		SELECT c.id, c.queue, n.flds
		FROM cards c
		JOIN notes n ON c.nid = n.id
		WHERE c.queue = ? OR (c.queue = ? AND c.due <= ?)
		ORDER BY c.queue, c.due
	`, domain.QueueNew, domain.QueueReview, today)
	if err != nil {
		return nil, fmt.Errorf("failed to query due cards: %w", err)
	}
	defer rows.Close()

	var due []DueCard
	for rows.Next() {
		var d DueCard
		var flds string
		if err := rows.Scan(&d.CardID, &d.Queue, &flds); err != nil {
			return nil, fmt.Errorf("failed to scan due card: %w", err)
		}
		d.Fields = strings.Split(flds, domain.FieldSep)
		due = append(due, d)
	}
	return due, rows.Err()
}

// GetNote retrieves a note by id.
func (db *DB) GetNote(id int64) (*domain.Note, error) {
	var n domain.Note
	var tags, flds string
	var csum int64
	err := db.conn.QueryRow(`
		SELECT id, guid, mid, mod, tags, flds, sfld, csum
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.GUID, &n.ModelID, &n.Mod, &tags, &flds, &n.SortField, &csum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note %d: %w", id, err)
	}
	n.Tags = splitTags(tags)
	n.Fields = strings.Split(flds, domain.FieldSep)
	n.Checksum = uint32(csum)
	return &n, nil
}

// GetCard retrieves a card by id.
func (db *DB) GetCard(id int64) (*domain.Card, error) {
	c, err := scanCard(db.conn.QueryRow(`
		SELECT id, nid, did, ord, mod, type, queue, due, ivl, factor, reps, lapses, left
		FROM cards WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card %d: %w", id, err)
	}
	return c, nil
}

// CardsForNote returns all cards belonging to a note, ordered by
// template index.
func (db *DB) CardsForNote(noteID int64) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, nid, did, ord, mod, type, queue, due, ivl, factor, reps, lapses, left
		FROM cards WHERE nid = ? ORDER BY ord
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards for note %d: %w", noteID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

// FindNotesByChecksum returns the ids of notes whose sort-field checksum
// matches; candidates for duplicate detection.
func (db *DB) FindNotesByChecksum(csum uint32) ([]int64, error) {
	rows, err := db.conn.Query(`SELECT id FROM notes WHERE csum = ?`, int64(csum))
	if err != nil {
		return nil, fmt.Errorf("failed to query notes by checksum: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan note id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteNote removes a note and cascade-deletes its cards, leaving a
// grave tombstone for every removed object.
func (db *DB) DeleteNote(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM notes WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check note %d: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
	}

	rows, err := tx.Query(`SELECT id FROM cards WHERE nid = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to list cards for note %d: %w", id, err)
	}
	var cardIDs []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan card id: %w", err)
		}
		cardIDs = append(cardIDs, cid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read card ids: %w", err)
	}

	for _, cid := range cardIDs {
		if _, err := tx.Exec(`INSERT INTO graves (usn, oid, type) VALUES (-1, ?, ?)`, cid, graveCard); err != nil {
			return fmt.Errorf("failed to record card grave: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO graves (usn, oid, type) VALUES (-1, ?, ?)`, id, graveNote); err != nil {
		return fmt.Errorf("failed to record note grave: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM cards WHERE nid = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards for note %d: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}

	if err := touchCollection(tx, db.now().Unix()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	err := row.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.Ord, &c.Mod,
		&c.Type, &c.Queue, &c.Due, &c.Interval, &c.Factor, &c.Reps, &c.Lapses, &c.Left)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// joinTags renders a tag list into the spaces-delimited column format.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func splitTags(raw string) []string {
	return strings.Fields(raw)
}
