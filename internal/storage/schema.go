package storage

// Fixed collection schema, compatible with the Anki desktop file format:
// a singleton col row carrying the embedded model/deck/config documents,
// relational notes/cards/revlog tables, graves for deletion tombstones
// and media for attached blobs.
const schema = `
CREATE TABLE IF NOT EXISTS col (
    id     INTEGER PRIMARY KEY,
    crt    INTEGER NOT NULL, -- creation time, epoch seconds
    mod    INTEGER NOT NULL, -- modification time
    scm    INTEGER NOT NULL, -- schema modification time, epoch millis
    ver    INTEGER NOT NULL, -- format version
    dty    INTEGER NOT NULL,
    usn    INTEGER NOT NULL,
    ls     INTEGER NOT NULL, -- last sync time
    conf   TEXT NOT NULL,
    models TEXT NOT NULL,
    decks  TEXT NOT NULL,
    dconf  TEXT NOT NULL,
    tags   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
    id    INTEGER PRIMARY KEY,
    guid  TEXT NOT NULL,
    mid   INTEGER NOT NULL, -- model id
    mod   INTEGER NOT NULL,
    usn   INTEGER NOT NULL,
    tags  TEXT NOT NULL,
    flds  TEXT NOT NULL,    -- field values joined by 0x1F
    sfld  TEXT NOT NULL,    -- sort field
    csum  INTEGER NOT NULL, -- checksum of sfld
    flags INTEGER NOT NULL,
    data  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
    id     INTEGER PRIMARY KEY,
    nid    INTEGER NOT NULL, -- owning note
    did    INTEGER NOT NULL, -- owning deck
    ord    INTEGER NOT NULL, -- template index within the model
    mod    INTEGER NOT NULL,
    usn    INTEGER NOT NULL,
    type   INTEGER NOT NULL, -- 0 new, 1 learning, 2 review
    queue  INTEGER NOT NULL, -- mirrors type; negative = suspended/buried
    due    INTEGER NOT NULL, -- interpretation depends on queue
    ivl    INTEGER NOT NULL, -- days
    factor INTEGER NOT NULL, -- ease factor in thousandths
    reps   INTEGER NOT NULL,
    lapses INTEGER NOT NULL,
    left   INTEGER NOT NULL, -- learning steps remaining
    odue   INTEGER NOT NULL, -- original due, filtered decks
    odid   INTEGER NOT NULL, -- original deck, filtered decks
    flags  INTEGER NOT NULL,
    data   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revlog (
    id      INTEGER PRIMARY KEY, -- epoch millis, time-ordered
    cid     INTEGER NOT NULL,
    usn     INTEGER NOT NULL,
    ease    INTEGER NOT NULL,    -- 1..4 answer code
    ivl     INTEGER NOT NULL,
    lastIvl INTEGER NOT NULL,
    factor  INTEGER NOT NULL,
    time    INTEGER NOT NULL,    -- elapsed review time, millis
    type    INTEGER NOT NULL     -- 1 pass, 0 fail
);

CREATE TABLE IF NOT EXISTS graves (
    usn  INTEGER NOT NULL,
    oid  INTEGER NOT NULL,
    type INTEGER NOT NULL -- 0 card, 1 note, 2 deck
);

CREATE TABLE IF NOT EXISTS media (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    data     BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_notes_usn ON notes (usn);
CREATE INDEX IF NOT EXISTS ix_cards_usn ON cards (usn);
CREATE INDEX IF NOT EXISTS ix_revlog_usn ON revlog (usn);
CREATE INDEX IF NOT EXISTS ix_cards_nid ON cards (nid);
CREATE INDEX IF NOT EXISTS ix_cards_sched ON cards (did, queue, due);
CREATE INDEX IF NOT EXISTS ix_revlog_cid ON revlog (cid);
CREATE INDEX IF NOT EXISTS ix_notes_csum ON notes (csum);
`

// Grave type codes.
const (
	graveCard = 0
	graveNote = 1
)

// collectionVersion is the col.ver format version the schema targets.
const collectionVersion = 11
