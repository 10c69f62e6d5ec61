package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/colmdoyle/ankibox/internal/domain"
	"github.com/colmdoyle/ankibox/internal/scheduler"
)

// ReviewCard applies the scheduler to one card with the given recall
// quality and persists the card update together with the revlog append
// in a single transaction. elapsed is the time the caller measured for
// the review; it lands in the log's time column.
func (db *DB) ReviewCard(cardID int64, quality int, elapsed time.Duration) (*scheduler.Result, error) {
	card, err := db.GetCard(cardID)
	if err != nil {
		return nil, err
	}

	res, err := scheduler.Apply(*card, quality, elapsed, db.now())
	if err != nil {
		return nil, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c := res.Card
	_, err = tx.Exec(`
		UPDATE cards
		SET type = ?, queue = ?, due = ?, ivl = ?, factor = ?, reps = ?, lapses = ?, left = ?, mod = ?
		WHERE id = ?
	`, c.Type, c.Queue, c.Due, c.Interval, c.Factor, c.Reps, c.Lapses, c.Left, c.Mod, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update card %d: %w", cardID, err)
	}

	log := res.Log
	log.ID = db.ids.NextID()
	_, err = tx.Exec(`
		INSERT INTO revlog (id, cid, usn, ease, ivl, lastIvl, factor, time, type)
		VALUES (?, ?, -1, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.CardID, log.Ease, log.Interval, log.LastInterval, log.Factor, log.TakenMS, log.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to append review log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}
	res.Log = log
	return &res, nil
}

// ReviewsForCard returns the card's revlog entries in time order.
func (db *DB) ReviewsForCard(cardID int64) ([]domain.Review, error) {
	rows, err := db.conn.Query(`
		SELECT id, cid, ease, ivl, lastIvl, factor, time, type
		FROM revlog WHERE cid = ? ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query review log: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.CardID, &r.Ease, &r.Interval, &r.LastInterval, &r.Factor, &r.TakenMS, &r.Type); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// DayCount is the number of review cards coming due on one day.
type DayCount struct {
	Day   time.Time
	Count int
}

// UpcomingReviews summarizes review-queue cards due within the next
// days after asOf, grouped per day in ascending order.
func (db *DB) UpcomingReviews(asOf time.Time, days int) ([]DayCount, error) {
	today := scheduler.DaysSinceEpoch(asOf)
	rows, err := db.conn.Query(`
		SELECT due, COUNT(*)
		FROM cards
		WHERE queue = ? AND due BETWEEN ? AND ?
		GROUP BY due
	`, domain.QueueReview, today, today+int64(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming reviews: %w", err)
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var day int64
		var dc DayCount
		if err := rows.Scan(&day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan upcoming count: %w", err)
		}
		dc.Day = scheduler.DayToTime(day)
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Day.Before(counts[j].Day) })
	return counts, nil
}
