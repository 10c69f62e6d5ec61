package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colmdoyle/ankibox/internal/collection"
	"github.com/colmdoyle/ankibox/internal/domain"
	"github.com/colmdoyle/ankibox/internal/ident"
	"github.com/colmdoyle/ankibox/internal/scheduler"
)

var testClock = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenOptions(filepath.Join(t.TempDir(), "collection.anki2"), Options{
		Now: func() time.Time { return testClock },
		IDs: ident.NewWithClock(func() time.Time { return testClock }),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func basicModel(t *testing.T, db *DB) int64 {
	t.Helper()
	id, err := db.AddModel("Basic", []string{"Front", "Back"}, []collection.TemplateSpec{
		{Name: "Card 1", Qfmt: "{{Front}}", Afmt: "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}"},
	})
	require.NoError(t, err)
	return id
}

func TestOpenBootstrapsDefaultDeck(t *testing.T) {
	db := openTestDB(t)

	decks, err := db.Decks()
	require.NoError(t, err)
	deck, ok := decks.Get(1)
	require.True(t, ok, "default deck must exist after open")
	assert.Equal(t, "Default", deck.Name)
}

func TestReopenKeepsCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.anki2")
	db, err := Open(path)
	require.NoError(t, err)
	modelID, err := db.AddModel("Basic", []string{"Front", "Back"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()

	id, ok, err := db2.FindModelID("Basic")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, modelID, id)
}

func TestAddModelNeverDeduplicates(t *testing.T) {
	db := openTestDB(t)

	first := basicModel(t, db)
	second := basicModel(t, db)
	assert.NotEqual(t, first, second, "identical definitions must still get distinct ids")

	// Lookup by name returns one of the two, not an error.
	id, ok, err := db.FindModelID("Basic")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []int64{first, second}, id)
}

func TestAddNoteCreatesOneCardPerTemplate(t *testing.T) {
	db := openTestDB(t)
	modelID, err := db.AddModel("Reversible", []string{"Front", "Back"}, []collection.TemplateSpec{
		{Name: "Forward", Qfmt: "{{Front}}", Afmt: "{{Back}}"},
		{Name: "Reverse", Qfmt: "{{Back}}", Afmt: "{{Front}}"},
	})
	require.NoError(t, err)
	deckID, err := db.AddDeck("Basketball")
	require.NoError(t, err)

	noteID, err := db.AddNote(modelID, deckID, []string{"2+2?", "4"}, []string{"math"})
	require.NoError(t, err)

	note, err := db.GetNote(noteID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2+2?", "4"}, note.Fields)
	assert.Equal(t, "2+2?", note.SortField)
	assert.Equal(t, db.Checksum("2+2?"), note.Checksum)
	assert.Equal(t, []string{"math"}, note.Tags)
	assert.NotEmpty(t, note.GUID)

	cards, err := db.CardsForNote(noteID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	for i, card := range cards {
		assert.Equal(t, i, card.Ord)
		assert.Equal(t, domain.QueueNew, card.Queue)
		assert.Equal(t, 0, card.Interval)
		assert.Equal(t, domain.InitialFactor, card.Factor)
		assert.Zero(t, card.Reps)
		assert.Zero(t, card.Lapses)
	}
	// New cards queue in insertion order.
	assert.Equal(t, cards[0].Due+1, cards[1].Due)
}

func TestAddNoteValidation(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)

	testCases := []struct {
		name     string
		modelID  int64
		deckID   int64
		fields   []string
		expected error
	}{
		{"unknown model", 999, 1, []string{"q", "a"}, domain.ErrNotFound},
		{"unknown deck", modelID, 999, []string{"q", "a"}, domain.ErrNotFound},
		{"too few fields", modelID, 1, []string{"q"}, domain.ErrSchemaMismatch},
		{"too many fields", modelID, 1, []string{"q", "a", "extra"}, domain.ErrSchemaMismatch},
		{"separator byte in field", modelID, 1, []string{"q\x1fq", "a"}, domain.ErrSchemaMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.AddNote(tc.modelID, tc.deckID, tc.fields, nil)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestAddNoteDuplicateID(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)

	firstNote, err := db.AddNote(modelID, 1, []string{"q", "a"}, nil)
	require.NoError(t, err)

	// The fixed-clock generator issues consecutive ids, so the next
	// AddNote will claim firstNote+2 (one id went to the first note's
	// card). Occupy that id up front to hit the duplicate check.
	occupied := firstNote + 2
	flds := "q" + domain.FieldSep + "a"
	_, err = db.conn.Exec(`
		INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, 'g', ?, 0, -1, '', ?, 'q', 0, 0, '')
	`, occupied, modelID, flds)
	require.NoError(t, err)

	noteID, err := db.AddNote(modelID, 1, []string{"q", "a"}, nil)
	require.NoError(t, err, "identical content at an existing id is a no-op")
	assert.Equal(t, occupied, noteID)

	cards, err := db.CardsForNote(noteID)
	require.NoError(t, err)
	assert.Empty(t, cards, "the no-op must not fan out cards")

	// Same collision with different content is an error.
	_, err = db.conn.Exec(`
		INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, 'g2', ?, 0, -1, '', ?, 'other', 0, 0, '')
	`, occupied+1, modelID, "other"+domain.FieldSep+"a")
	require.NoError(t, err)

	_, err = db.AddNote(modelID, 1, []string{"q", "a"}, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}

func TestDueCards(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)

	_, err := db.AddNote(modelID, 1, []string{"new card", "a"}, nil)
	require.NoError(t, err)
	reviewedNote, err := db.AddNote(modelID, 1, []string{"reviewed card", "a"}, nil)
	require.NoError(t, err)

	// Push the second note's card into the review queue, due tomorrow.
	cards, err := db.CardsForNote(reviewedNote)
	require.NoError(t, err)
	_, err = db.ReviewCard(cards[0].ID, 5, 0)
	require.NoError(t, err)

	due, err := db.DueCards(testClock)
	require.NoError(t, err)
	require.Len(t, due, 1, "only the new card is due today")
	assert.Equal(t, []string{"new card", "a"}, due[0].Fields)

	// A day later the reviewed card comes due as well.
	due, err = db.DueCards(testClock.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestReviewCardPersistsStateAndLog(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)
	noteID, err := db.AddNote(modelID, 1, []string{"q", "a"}, nil)
	require.NoError(t, err)
	cards, err := db.CardsForNote(noteID)
	require.NoError(t, err)
	cardID := cards[0].ID

	res, err := db.ReviewCard(cardID, 5, 4*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Card.Interval)
	assert.Equal(t, domain.QueueReview, res.Card.Queue)

	stored, err := db.GetCard(cardID)
	require.NoError(t, err)
	assert.Equal(t, res.Card.Interval, stored.Interval)
	assert.Equal(t, res.Card.Due, stored.Due)
	assert.Equal(t, res.Card.Factor, stored.Factor)
	assert.Equal(t, 1, stored.Reps)

	reviews, err := db.ReviewsForCard(cardID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 6, reviews[0].Ease) // quality+1
	assert.Equal(t, int64(4000), reviews[0].TakenMS)
	assert.Equal(t, 1, reviews[0].Type)
	assert.NotZero(t, reviews[0].ID)
}

func TestReviewCardErrors(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ReviewCard(12345, 5, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	modelID := basicModel(t, db)
	noteID, err := db.AddNote(modelID, 1, []string{"q", "a"}, nil)
	require.NoError(t, err)
	cards, err := db.CardsForNote(noteID)
	require.NoError(t, err)

	_, err = db.ReviewCard(cards[0].ID, 7, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	// A failed scheduler run must not append to the log.
	reviews, err := db.ReviewsForCard(cards[0].ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestDeleteNoteCascadesWithGraves(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)
	noteID, err := db.AddNote(modelID, 1, []string{"q", "a"}, nil)
	require.NoError(t, err)
	cards, err := db.CardsForNote(noteID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteNote(noteID))

	_, err = db.GetNote(noteID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	remaining, err := db.CardsForNote(noteID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	var graves int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM graves`).Scan(&graves))
	assert.Equal(t, len(cards)+1, graves, "one grave per card plus one for the note")

	assert.ErrorIs(t, db.DeleteNote(noteID), domain.ErrNotFound)
}

func TestFindNotesByChecksum(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)

	noteID, err := db.AddNote(modelID, 1, []string{"same front", "a"}, nil)
	require.NoError(t, err)
	dupID, err := db.AddNote(modelID, 1, []string{"same front", "different back"}, nil)
	require.NoError(t, err)

	ids, err := db.FindNotesByChecksum(db.Checksum("same front"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{noteID, dupID}, ids)

	ids, err = db.FindNotesByChecksum(db.Checksum("unseen front"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUpcomingReviews(t *testing.T) {
	db := openTestDB(t)
	modelID := basicModel(t, db)

	for _, q := range []string{"a", "b", "c"} {
		noteID, err := db.AddNote(modelID, 1, []string{q, "x"}, nil)
		require.NoError(t, err)
		cards, err := db.CardsForNote(noteID)
		require.NoError(t, err)
		_, err = db.ReviewCard(cards[0].ID, 5, 0)
		require.NoError(t, err)
	}

	counts, err := db.UpcomingReviews(testClock, 30)
	require.NoError(t, err)
	require.Len(t, counts, 1, "all three cards land on the same day")
	assert.Equal(t, 3, counts[0].Count)
	assert.Equal(t, scheduler.DayToTime(scheduler.DaysSinceEpoch(testClock)+1), counts[0].Day)
}

func TestMediaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.AddMedia("hoop.png", []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	assert.NotZero(t, id)

	files, err := db.MediaFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "hoop.png", files[0].Filename)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, files[0].Data)
}
