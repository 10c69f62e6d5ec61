// Package scheduler implements the SuperMemo-2 spacing algorithm over
// the card state model: new cards graduate through learning into the
// review queue, failed reviews lapse back to learning. Apply is pure;
// callers inject the review time, so identical inputs always produce
// identical schedules.
package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/colmdoyle/ankibox/internal/domain"
)

const (
	// minFactor is the ease floor, 1.3 in thousandths.
	minFactor = 1300

	// passThreshold splits the 0..5 quality scale: below is a lapse.
	passThreshold = 3

	// lapseSteps is the learning-step count a lapsed card restarts with.
	lapseSteps = 3
)

// Result carries the updated card state and the review log entry for
// one scheduler invocation. The log's ID and CardID are left for the
// store to fill.
type Result struct {
	Card domain.Card
	Log  domain.Review
}

// Apply reviews the card with a recall quality in [0,5] at the given
// time and returns the next state plus a log entry. The input card is
// not mutated. Quality outside [0,5] returns ErrInvalidRating.
//
// On a lapse the card keeps its reps count; only lapses grows. The
// review history stays reconstructible from the revlog either way, but
// preserving reps keeps the success count visible on the card row.
func Apply(card domain.Card, quality int, elapsed time.Duration, now time.Time) (Result, error) {
	if quality < 0 || quality > 5 {
		return Result{}, fmt.Errorf("%w: quality %d outside [0,5]", domain.ErrInvalidRating, quality)
	}

	next := card
	next.Mod = now.Unix()
	lastInterval := card.Interval

	if quality < passThreshold {
		// Lapse: back to learning on a minimal interval, ease penalty.
		next.Interval = 1
		next.Factor = max(minFactor, card.Factor-200)
		next.Type = domain.CardTypeLearning
		next.Queue = domain.QueueLearning
		next.Due = now.Unix() + int64(next.Interval)*60 // minutes scale in learning
		next.Lapses = card.Lapses + 1
		next.Left = lapseSteps
	} else {
		next.Reps = card.Reps + 1
		next.Factor = nextFactor(card.Factor, quality)

		switch card.Interval {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(card.Interval) * float64(next.Factor) / 1000.0))
		}

		next.Type = domain.CardTypeReview
		next.Queue = domain.QueueReview
		next.Due = DaysSinceEpoch(now) + int64(next.Interval)
		next.Left = 0
	}

	log := domain.Review{
		CardID:       card.ID,
		Ease:         quality + 1,
		Interval:     next.Interval,
		LastInterval: lastInterval,
		Factor:       next.Factor,
		TakenMS:      elapsed.Milliseconds(),
		Type:         passType(quality),
	}

	return Result{Card: next, Log: log}, nil
}

// nextFactor applies the SM-2 ease adjustment for a passing quality,
// clamped at the 1.3 floor. Factors are kept in thousandths throughout
// to match the stored representation.
func nextFactor(factor, quality int) int {
	ease := float64(factor) / 1000.0
	miss := float64(5 - quality)
	ease += 0.1 - miss*(0.08+miss*0.02)
	adjusted := int(math.Round(ease * 1000.0))
	return max(minFactor, adjusted)
}

func passType(quality int) int {
	if quality >= passThreshold {
		return 1
	}
	return 0
}

// DaysSinceEpoch converts a time to the day-count format used for
// review-queue due values.
func DaysSinceEpoch(t time.Time) int64 {
	return t.UTC().Unix() / 86400
}

// DayToTime converts a review-queue due value back to the start of that
// day in UTC.
func DayToTime(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}
