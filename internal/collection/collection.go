// Package collection models the semi-structured documents embedded in
// the collection row: note types ("models"), decks, deck configuration
// and collection preferences. Each document set serializes to a JSON
// object keyed by stringified id, the exact text format the desktop
// application reads from the col table's models/decks/dconf/conf
// columns.
package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one named field of a model, in display order.
type Field struct {
	Name   string   `json:"name"`
	Ord    int      `json:"ord"`
	Sticky bool     `json:"sticky"`
	RTL    bool     `json:"rtl"`
	Font   string   `json:"font"`
	Size   int      `json:"size"`
	Media  []string `json:"media"`
}

// Template is one card template of a model. Qfmt and Afmt are format
// strings referencing fields as {{FieldName}}.
type Template struct {
	Name         string `json:"name"`
	Ord          int    `json:"ord"`
	Qfmt         string `json:"qfmt"`
	Afmt         string `json:"afmt"`
	Bqfmt        string `json:"bqfmt"`
	Bafmt        string `json:"bafmt"`
	DeckOverride *int64 `json:"did"`
	Bfont        string `json:"bfont"`
	Bsize        int    `json:"bsize"`
}

// TemplateSpec is the caller-facing shape for creating a template.
type TemplateSpec struct {
	Name string
	Qfmt string
	Afmt string
}

// Requirement records which field ordinals a template references.
// It serializes as the three-element array [ord, "any", [field ords]].
type Requirement struct {
	TemplateOrd int
	Kind        string
	FieldOrds   []int
}

// MarshalJSON implements json.Marshaler.
func (r Requirement) MarshalJSON() ([]byte, error) {
	ords := r.FieldOrds
	if ords == nil {
		ords = []int{}
	}
	return json.Marshal([]any{r.TemplateOrd, r.Kind, ords})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("requirement: expected 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &r.TemplateOrd); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &r.Kind); err != nil {
		return err
	}
	return json.Unmarshal(raw[2], &r.FieldOrds)
}

// Model is a note type: an ordered field list plus one or more card
// templates derived from those fields.
type Model struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Type      int           `json:"type"`
	Mod       int64         `json:"mod"`
	USN       int           `json:"usn"`
	SortField int           `json:"sortf"`
	Tags      []string      `json:"tags"`
	DeckID    int64         `json:"did"`
	Templates []Template    `json:"tmpls"`
	Fields    []Field       `json:"flds"`
	CSS       string        `json:"css"`
	LatexPre  string        `json:"latexPre"`
	LatexPost string        `json:"latexPost"`
	Req       []Requirement `json:"req"`
}

const defaultCSS = ".card {\n font-family: arial;\n font-size: 20px;\n text-align: center;\n color: black;\n background-color: white;\n}\n\n.cloze {\n font-weight: bold;\n color: blue;\n}"

const defaultLatexPre = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n"

const defaultLatexPost = "\\end{document}"

// NewModel builds a model document from field names and template specs.
// Each template's requirement lists the ordinals of fields its formats
// reference; a template referencing no fields gets an empty list and
// remains valid.
func NewModel(id int64, name string, fieldNames []string, templates []TemplateSpec, mod int64) Model {
	m := Model{
		ID:        id,
		Name:      name,
		Mod:       mod,
		Tags:      []string{},
		DeckID:    1,
		CSS:       defaultCSS,
		LatexPre:  defaultLatexPre,
		LatexPost: defaultLatexPost,
		Req:       []Requirement{},
	}

	for i, fname := range fieldNames {
		m.Fields = append(m.Fields, Field{
			Name:  fname,
			Ord:   i,
			Font:  "Arial",
			Size:  20,
			Media: []string{},
		})
	}

	for i, spec := range templates {
		m.Templates = append(m.Templates, Template{
			Name: spec.Name,
			Ord:  i,
			Qfmt: spec.Qfmt,
			Afmt: spec.Afmt,
		})
		m.Req = append(m.Req, Requirement{
			TemplateOrd: i,
			Kind:        "any",
			FieldOrds:   requiredFields(fieldNames, spec),
		})
	}
	return m
}

// requiredFields scans a template's formats for {{FieldName}} references
// and returns the ordinals of the fields found.
func requiredFields(fieldNames []string, spec TemplateSpec) []int {
	var ords []int
	for i, fname := range fieldNames {
		ref := "{{" + fname + "}}"
		if strings.Contains(spec.Qfmt, ref) || strings.Contains(spec.Afmt, ref) {
			ords = append(ords, i)
		}
	}
	if ords == nil {
		ords = []int{}
	}
	return ords
}

// FieldCount returns the number of fields a note of this model carries.
func (m Model) FieldCount() int {
	return len(m.Fields)
}

// Deck is a named bucket of cards with per-day counters. The *Today
// pairs are [day-stamp, count] as the desktop application stores them.
type Deck struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	ExtendRev int    `json:"extendRev"`
	USN       int    `json:"usn"`
	Collapsed bool   `json:"collapsed"`
	NewToday  [2]int `json:"newToday"`
	RevToday  [2]int `json:"revToday"`
	LrnToday  [2]int `json:"lrnToday"`
	TimeToday [2]int `json:"timeToday"`
	Dyn       int    `json:"dyn"`
	ExtendNew int    `json:"extendNew"`
	Conf      int64  `json:"conf"`
	Mod       int64  `json:"mod"`
}

// NewDeck builds a deck document pointing at the default deck config.
func NewDeck(id int64, name string, mod int64) Deck {
	return Deck{
		ID:        id,
		Name:      name,
		ExtendRev: 50,
		ExtendNew: 10,
		Conf:      1,
		Mod:       mod,
	}
}

// DefaultDeck returns the deck with id 1, which must always exist.
func DefaultDeck(mod int64) Deck {
	return NewDeck(1, "Default", mod)
}

// LapseConfig configures handling of failed reviews.
type LapseConfig struct {
	LeechFails  int   `json:"leechFails"`
	Delays      []int `json:"delays"`
	MinInt      int   `json:"minInt"`
	LeechAction int   `json:"leechAction"`
	Mult        int   `json:"mult"`
}

// RevConfig configures the review queue.
type RevConfig struct {
	Bury     bool    `json:"bury"`
	IvlFct   float64 `json:"ivlFct"`
	Ease4    float64 `json:"ease4"`
	MaxIvl   int     `json:"maxIvl"`
	PerDay   int     `json:"perDay"`
	MinSpace int     `json:"minSpace"`
	Fuzz     float64 `json:"fuzz"`
}

// NewConfig configures the new-card queue.
type NewConfig struct {
	Bury          bool  `json:"bury"`
	Separate      bool  `json:"separate"`
	Delays        []int `json:"delays"`
	InitialFactor int   `json:"initialFactor"`
	Ints          []int `json:"ints"`
	Order         int   `json:"order"`
	PerDay        int   `json:"perDay"`
}

// DeckConfig bundles the per-deck scheduling options.
type DeckConfig struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	ReplayQ  bool        `json:"replayq"`
	Lapse    LapseConfig `json:"lapse"`
	Rev      RevConfig   `json:"rev"`
	Timer    int         `json:"timer"`
	MaxTaken int         `json:"maxTaken"`
	USN      int         `json:"usn"`
	New      NewConfig   `json:"new"`
	Mod      int64       `json:"mod"`
	Autoplay bool        `json:"autoplay"`
}

// DefaultDeckConfig returns the config document with id 1.
func DefaultDeckConfig(mod int64) DeckConfig {
	return DeckConfig{
		ID:      1,
		Name:    "Default",
		ReplayQ: true,
		Lapse: LapseConfig{
			LeechFails: 8,
			Delays:     []int{10},
			MinInt:     1,
		},
		Rev: RevConfig{
			Bury:     true,
			IvlFct:   1,
			Ease4:    1.3,
			MaxIvl:   36500,
			PerDay:   200,
			MinSpace: 1,
			Fuzz:     0.05,
		},
		MaxTaken: 60,
		New: NewConfig{
			Bury:          true,
			Separate:      true,
			Delays:        []int{1, 10},
			InitialFactor: 2500,
			Ints:          []int{1, 4, 7},
			Order:         1,
			PerDay:        20,
		},
		Mod:      mod,
		Autoplay: true,
	}
}

// Conf holds collection-wide preferences stored in the conf column.
type Conf struct {
	NextPos       int     `json:"nextPos"`
	EstTimes      bool    `json:"estTimes"`
	ActiveDecks   []int64 `json:"activeDecks"`
	SortType      string  `json:"sortType"`
	TimeLim       int     `json:"timeLim"`
	SortBackwards bool    `json:"sortBackwards"`
	AddToCur      bool    `json:"addToCur"`
	CurDeck       int64   `json:"curDeck"`
	NewSpread     int     `json:"newSpread"`
	DueCounts     bool    `json:"dueCounts"`
	CurModel      string  `json:"curModel"`
	CollapseTime  int     `json:"collapseTime"`
}

// DefaultConf returns the initial collection preferences.
func DefaultConf() Conf {
	return Conf{
		NextPos:      1,
		EstTimes:     true,
		ActiveDecks:  []int64{1},
		SortType:     "noteFld",
		AddToCur:     true,
		CurDeck:      1,
		NewSpread:    0,
		DueCounts:    true,
		CollapseTime: 1200,
	}
}

// Models is the document set stored in the col models column.
type Models map[string]Model

// Decks is the document set stored in the col decks column.
type Decks map[string]Deck

// DeckConfigs is the document set stored in the col dconf column.
type DeckConfigs map[string]DeckConfig

// ParseModels decodes the models column. An empty column yields an
// empty, usable set.
func ParseModels(raw string) (Models, error) {
	m := Models{}
	if err := parseDocSet(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing models: %w", err)
	}
	return m, nil
}

// ParseDecks decodes the decks column.
func ParseDecks(raw string) (Decks, error) {
	d := Decks{}
	if err := parseDocSet(raw, &d); err != nil {
		return nil, fmt.Errorf("parsing decks: %w", err)
	}
	return d, nil
}

// ParseDeckConfigs decodes the dconf column.
func ParseDeckConfigs(raw string) (DeckConfigs, error) {
	c := DeckConfigs{}
	if err := parseDocSet(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing deck configs: %w", err)
	}
	return c, nil
}

func parseDocSet(raw string, out any) error {
	if raw == "" || raw == "{}" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

// Marshal encodes the model set back to column text.
func (m Models) Marshal() (string, error) {
	return marshalDocSet(m)
}

// Marshal encodes the deck set back to column text.
func (d Decks) Marshal() (string, error) {
	return marshalDocSet(d)
}

// Marshal encodes the deck config set back to column text.
func (c DeckConfigs) Marshal() (string, error) {
	return marshalDocSet(c)
}

func marshalDocSet(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling document set: %w", err)
	}
	return string(b), nil
}

// Add stores a model under its stringified id.
func (m Models) Add(model Model) {
	m[strconv.FormatInt(model.ID, 10)] = model
}

// Add stores a deck under its stringified id.
func (d Decks) Add(deck Deck) {
	d[strconv.FormatInt(deck.ID, 10)] = deck
}

// FindByName returns the id of the first model with the given name in
// iteration order. Name collisions are permitted; callers needing
// exclusivity must check before adding.
func (m Models) FindByName(name string) (int64, bool) {
	for _, model := range m {
		if model.Name == name {
			return model.ID, true
		}
	}
	return 0, false
}

// FindByName returns the id of the first deck with the given name.
func (d Decks) FindByName(name string) (int64, bool) {
	for _, deck := range d {
		if deck.Name == name {
			return deck.ID, true
		}
	}
	return 0, false
}

// Get returns the model with the given id.
func (m Models) Get(id int64) (Model, bool) {
	model, ok := m[strconv.FormatInt(id, 10)]
	return model, ok
}

// Get returns the deck with the given id.
func (d Decks) Get(id int64) (Deck, bool) {
	deck, ok := d[strconv.FormatInt(id, 10)]
	return deck, ok
}
