// Package parser reads markdown deck files in the Q:/A:/C: format and
// turns each entry into the field values and tags for one note. The
// question and answer map onto the model's two fields; an optional
// context line becomes a tag.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

// NoteInput is one parsed entry, ready for the store's AddNote.
type NoteInput struct {
	Fields []string // question, answer
	Tags   []string
}

// Question returns the entry's sort field.
func (n NoteInput) Question() string {
	if len(n.Fields) == 0 {
		return ""
	}
	return n.Fields[0]
}

// ParseFile reads a deck file from the given path.
func ParseFile(path string) ([]NoteInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts all note entries from a deck document. An entry starts
// at a Q: line and ends at the next Q: line, a --- separator, or EOF.
// Prefixed lines open a section; unprefixed lines continue the current
// one, so answers may span multiple lines. Entries without a question
// are dropped.
func Parse(r io.Reader) ([]NoteInput, error) {
	scanner := bufio.NewScanner(r)

	var notes []NoteInput
	sections := map[string][]string{}
	current := ""

	flush := func() {
		question := strings.Join(sections[questionPrefix], "\n")
		if question != "" {
			note := NoteInput{
				Fields: []string{question, strings.Join(sections[answerPrefix], "\n")},
			}
			if ctx := strings.Join(sections[contextPrefix], "\n"); ctx != "" {
				note.Tags = []string{tagFromContext(ctx)}
			}
			notes = append(notes, note)
		}
		sections = map[string][]string{}
		current = ""
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			flush()
			continue
		}

		if prefix := linePrefix(line); prefix != "" {
			if prefix == questionPrefix && current != "" {
				flush()
			}
			current = prefix
			sections[current] = append(sections[current], strings.TrimPrefix(line[len(prefix):], " "))
			continue
		}

		if current != "" {
			sections[current] = append(sections[current], line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func linePrefix(line string) string {
	for _, p := range []string{questionPrefix, answerPrefix, contextPrefix} {
		if strings.HasPrefix(line, p) {
			return p
		}
	}
	return ""
}

// tagFromContext normalizes a context line into a single tag: lowered,
// with whitespace runs collapsed to underscores so the tag survives the
// space-delimited tags column.
func tagFromContext(ctx string) string {
	fields := strings.Fields(strings.ToLower(ctx))
	return strings.Join(fields, "_")
}
