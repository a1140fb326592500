package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/thoughts/pkg/core"
)

// frontmatter is the YAML header of a note file.
type frontmatter struct {
	ID string `yaml:"id"`
	// Seq records arrival order; it is never shown to callers.
	Seq       int64  `yaml:"seq"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// record is a note as stored on disk.
type record struct {
	note core.Note
	seq  int64
}

// encodeNote renders a note as Markdown with YAML frontmatter.
func encodeNote(rec record) ([]byte, error) {
	fm := frontmatter{ID: rec.note.ID, Seq: rec.seq}
	if rec.note.HasTimestamp() {
		fm.CreatedAt = rec.note.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(rec.note.Text)
	return buf.Bytes(), nil
}

// decodeNote parses a note file. Files without frontmatter are rejected:
// the ID and arrival order live there.
func decodeNote(r io.Reader) (record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return record{}, err
	}

	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return record{}, errors.New("note has no frontmatter")
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("\n---"), 2)
	if len(parts) == 1 {
		return record{}, errors.New("frontmatter started but no closing delimiter found")
	}

	var fm frontmatter
	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return record{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if fm.ID == "" {
		return record{}, errors.New("frontmatter has no id")
	}

	text := strings.TrimPrefix(string(parts[1]), "\r")
	text = strings.TrimPrefix(text, "\n")

	rec := record{note: core.Note{ID: fm.ID, Text: text}, seq: fm.Seq}
	if fm.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, fm.CreatedAt)
		if err != nil {
			return record{}, fmt.Errorf("invalid created_at %q: %w", fm.CreatedAt, err)
		}
		rec.note.CreatedAt = ts
	}
	return rec, nil
}
