package storage

import (
	"fmt"

	"github.com/colmdoyle/ankibox/internal/collection"
)

// AddModel creates a model document from the given fields and templates,
// persists the updated models column and bumps the collection mod time.
// Calling it twice with identical arguments yields two distinct ids; the
// store never deduplicates models by name.
func (db *DB) AddModel(name string, fields []string, templates []collection.TemplateSpec) (int64, error) {
	models, err := db.Models()
	if err != nil {
		return 0, err
	}

	now := db.now().Unix()
	id := db.ids.NextID()
	models.Add(collection.NewModel(id, name, fields, templates, now))

	raw, err := models.Marshal()
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE col SET models = ? WHERE id = 1`, raw); err != nil {
		return 0, fmt.Errorf("failed to store models: %w", err)
	}
	if err := touchCollection(tx, now); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit model: %w", err)
	}
	return id, nil
}

// AddDeck creates a deck document referencing the default deck config
// and persists it. Name collisions are permitted.
func (db *DB) AddDeck(name string) (int64, error) {
	decks, err := db.Decks()
	if err != nil {
		return 0, err
	}

	now := db.now().Unix()
	id := db.ids.NextID()
	decks.Add(collection.NewDeck(id, name, now))

	raw, err := decks.Marshal()
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE col SET decks = ? WHERE id = 1`, raw); err != nil {
		return 0, fmt.Errorf("failed to store decks: %w", err)
	}
	if err := touchCollection(tx, now); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deck: %w", err)
	}
	return id, nil
}

// FindModelID returns the id of the first model with the given name.
func (db *DB) FindModelID(name string) (int64, bool, error) {
	models, err := db.Models()
	if err != nil {
		return 0, false, err
	}
	id, ok := models.FindByName(name)
	return id, ok, nil
}

// FindDeckID returns the id of the first deck with the given name.
func (db *DB) FindDeckID(name string) (int64, bool, error) {
	decks, err := db.Decks()
	if err != nil {
		return 0, false, err
	}
	id, ok := decks.FindByName(name)
	return id, ok, nil
}

// Models loads the model document set from the collection row.
func (db *DB) Models() (collection.Models, error) {
	var raw string
	if err := db.conn.QueryRow(`SELECT models FROM col WHERE id = 1`).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return collection.ParseModels(raw)
}

// Decks loads the deck document set from the collection row.
func (db *DB) Decks() (collection.Decks, error) {
	var raw string
	if err := db.conn.QueryRow(`SELECT decks FROM col WHERE id = 1`).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to load decks: %w", err)
	}
	return collection.ParseDecks(raw)
}
