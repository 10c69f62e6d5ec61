package collection

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewModelRequiredFields(t *testing.T) {
	testCases := []struct {
		name      string
		fields    []string
		templates []TemplateSpec
		expected  [][]int
	}{
		{
			name:   "both fields referenced",
			fields: []string{"Front", "Back"},
			templates: []TemplateSpec{
				{Name: "Card 1", Qfmt: "{{Front}}", Afmt: "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}"},
			},
			expected: [][]int{{0, 1}},
		},
		{
			name:   "answer-only template",
			fields: []string{"Question", "Answer", "Extra"},
			templates: []TemplateSpec{
				{Name: "Card 1", Qfmt: "{{Question}}", Afmt: "{{Answer}}"},
			},
			expected: [][]int{{0, 1}},
		},
		{
			name:   "no fields referenced is still valid",
			fields: []string{"Front", "Back"},
			templates: []TemplateSpec{
				{Name: "Static", Qfmt: "always the same", Afmt: "really"},
			},
			expected: [][]int{{}},
		},
		{
			name:   "two templates",
			fields: []string{"Front", "Back"},
			templates: []TemplateSpec{
				{Name: "Forward", Qfmt: "{{Front}}", Afmt: "{{Back}}"},
				{Name: "Reverse", Qfmt: "{{Back}}", Afmt: "{{Front}}"},
			},
			expected: [][]int{{0, 1}, {0, 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel(1700000000001, "Test", tc.fields, tc.templates, 1700000000)
			if len(m.Req) != len(tc.expected) {
				t.Fatalf("expected %d requirements, got %d", len(tc.expected), len(m.Req))
			}
			for i, want := range tc.expected {
				got := m.Req[i].FieldOrds
				if !reflect.DeepEqual(got, want) {
					t.Errorf("template %d: required ords = %v, expected %v", i, got, want)
				}
				if m.Req[i].Kind != "any" {
					t.Errorf("template %d: kind = %q, expected \"any\"", i, m.Req[i].Kind)
				}
			}
		})
	}
}

func TestRequirementJSONShape(t *testing.T) {
	r := Requirement{TemplateOrd: 0, Kind: "any", FieldOrds: []int{0, 1}}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `[0,"any",[0,1]]` {
		t.Fatalf("unexpected requirement encoding: %s", b)
	}

	var back Requirement
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, r) {
		t.Fatalf("round trip mismatch: %+v != %+v", back, r)
	}
}

func TestModelsRoundTrip(t *testing.T) {
	models := Models{}
	models.Add(NewModel(1700000000001, "Basic", []string{"Front", "Back"}, []TemplateSpec{
		{Name: "Card 1", Qfmt: "{{Front}}", Afmt: "{{Back}}"},
	}, 1700000000))

	raw, err := models.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := ParseModels(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, ok := parsed.Get(1700000000001)
	if !ok {
		t.Fatal("model lost in round trip")
	}
	if m.Name != "Basic" || m.FieldCount() != 2 || len(m.Templates) != 1 {
		t.Fatalf("round-tripped model corrupted: %+v", m)
	}
}

func TestParseEmptyColumns(t *testing.T) {
	for _, raw := range []string{"", "{}"} {
		models, err := ParseModels(raw)
		if err != nil {
			t.Fatalf("ParseModels(%q): %v", raw, err)
		}
		if len(models) != 0 {
			t.Fatalf("expected empty set for %q", raw)
		}
		decks, err := ParseDecks(raw)
		if err != nil {
			t.Fatalf("ParseDecks(%q): %v", raw, err)
		}
		if len(decks) != 0 {
			t.Fatalf("expected empty deck set for %q", raw)
		}
	}
}

func TestFindByNameFirstMatch(t *testing.T) {
	decks := Decks{}
	decks.Add(NewDeck(1, "Default", 0))
	decks.Add(NewDeck(1700000000002, "Basketball", 0))

	id, ok := decks.FindByName("Basketball")
	if !ok || id != 1700000000002 {
		t.Fatalf("FindByName = (%d, %v), expected (1700000000002, true)", id, ok)
	}
	if _, ok := decks.FindByName("Missing"); ok {
		t.Fatal("expected no match for unknown deck name")
	}
}
