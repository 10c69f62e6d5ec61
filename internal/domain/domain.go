package domain

// FieldSep is the reserved byte joining note field values in the flds
// column. It must never appear inside a field value.
const FieldSep = "\x1f"

// Card type codes, mirrored by the queue codes below for unsuspended cards.
const (
	CardTypeNew      = 0
	CardTypeLearning = 1
	CardTypeReview   = 2
)

// Card queue codes. Negative queues mark cards withheld from scheduling.
const (
	QueueSuspended = -1
	QueueNew       = 0
	QueueLearning  = 1
	QueueReview    = 2
)

// InitialFactor is the starting ease factor for new cards, in thousandths.
const InitialFactor = 2500

// Note is one piece of authored content. It expands into one card per
// template of its model.
type Note struct {
	ID        int64
	GUID      string
	ModelID   int64
	Mod       int64
	Tags      []string
	Fields    []string // ordered per the model's field list
	SortField string
	Checksum  uint32
}

// Card pairs a note with one of its model's templates and carries the
// scheduling state. Due is interpreted per Queue: a position ordinal in
// the new queue, epoch seconds in learning, days since epoch in review.
type Card struct {
	ID       int64
	NoteID   int64
	DeckID   int64
	Ord      int
	Mod      int64
	Type     int
	Queue    int
	Due      int64
	Interval int
	Factor   int // ease factor in thousandths, never below 1300
	Reps     int
	Lapses   int
	Left     int // learning steps remaining
}

// Review is one immutable revlog row. Ease is the 1..4 answer code,
// Type is 1 for a passing review and 0 for a lapse.
type Review struct {
	ID           int64
	CardID       int64
	Ease         int
	Interval     int
	LastInterval int
	Factor       int
	TakenMS      int64
	Type         int
}
