// Package fs implements the note store on a local directory: one Markdown
// file with YAML frontmatter per note, one subdirectory per collection.
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/aretw0/thoughts/pkg/core"
)

// NotePattern matches note files inside a collection directory.
const NotePattern = "*.md"

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	MustExist bool
	Logger    *slog.Logger
	// ErrorHandler receives failures of the watch loop, which are otherwise only logged.
	ErrorHandler func(error)
	// Debounce coalesces bursts of filesystem events. Zero means 50ms.
	Debounce time.Duration
}

// Store implements core.Store and core.Subscriber on the filesystem.
type Store struct {
	Path   string
	config Config

	mu            sync.RWMutex
	lastSeq       int64
	watchers      map[string]int
	lastEvent     *time.Time
	watcherErrors int
}

// NewStore creates a filesystem-backed store. Call Initialize before use.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	return &Store{
		Path:     config.Path,
		config:   config,
		watchers: make(map[string]int),
	}
}

// Initialize ensures the root directory exists.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat store path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
		return nil
	}

	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// Create implements core.Store. The store's clock stamps the note when asked.
func (s *Store) Create(ctx context.Context, collection string, p core.Payload) (string, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	rec := record{
		note: core.Note{ID: uuid.NewString(), Text: p.Text},
		seq:  s.nextSeq(now),
	}
	if p.ServerTimestamp {
		rec.note.CreatedAt = now
	}

	dir := s.collectionDir(collection)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create collection directory: %w", err)
	}

	data, err := encodeNote(rec)
	if err != nil {
		return "", fmt.Errorf("failed to serialize note: %w", err)
	}

	filename := filepath.Join(dir, rec.note.ID+".md")
	if err := writeFileAtomic(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write note: %w", err)
	}

	s.config.Logger.Debug("note written", "collection", collection, "id", rec.note.ID, "path", filename)
	return rec.note.ID, nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filename := filepath.Join(s.collectionDir(collection), id+".md")
	if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	s.config.Logger.Debug("note deleted", "collection", collection, "id", id)
	return nil
}

// Query implements core.Store. Unordered queries return arrival order.
func (s *Store) Query(ctx context.Context, collection string, order core.Order) ([]core.Note, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}

	dir := s.collectionDir(collection)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []core.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}

	records := make([]record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isNoteFile(entry.Name()) {
			continue
		}

		rec, err := s.readRecord(filepath.Join(dir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			// Deleted between ReadDir and Open.
			continue
		}
		if err != nil {
			s.config.Logger.Warn("skipping unreadable note", "path", entry.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b record) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return strings.Compare(a.note.ID, b.note.ID)
	})

	notes := make([]core.Note, len(records))
	for i, rec := range records {
		notes[i] = rec.note
	}
	if err := order.Sort(notes); err != nil {
		return nil, fmt.Errorf("failed to sort notes: %w", err)
	}
	return notes, nil
}

// Subscribe implements core.Subscriber. It watches the collection directory
// and publishes a fresh snapshot after every burst of changes.
func (s *Store) Subscribe(ctx context.Context, collection string) (core.Subscription, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.collectionDir(collection), 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}

	var w *watchWorker
	feed := core.NewFeed(func() {
		if err := w.Stop(context.Background()); err != nil {
			s.config.Logger.Debug("watcher stop", "collection", collection, "error", err)
		}
	})
	w = newWatchWorker(s, collection, feed)

	// Watch before the first read so nothing between the two is lost.
	if err := w.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	notes, err := s.Query(ctx, collection, core.OrderNone)
	if err != nil {
		_ = feed.Close()
		return nil, err
	}
	feed.Send(notes)
	return feed, nil
}

func (s *Store) readRecord(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record{}, err
	}
	return decodeNote(bytes.NewReader(data))
}

func (s *Store) collectionDir(collection string) string {
	return filepath.Join(s.Path, collection)
}

// nextSeq hands out strictly increasing arrival numbers, seeded from the clock
// so that separate processes sharing a directory interleave sensibly.
func (s *Store) nextSeq(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := now.UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func isNoteFile(name string) bool {
	if strings.HasPrefix(name, TempFilePrefix) {
		return false
	}
	ok, err := doublestar.Match(NotePattern, name)
	return err == nil && ok
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: invalid id %q", core.ErrNotFound, id)
	}
	return nil
}

var (
	_ core.Store      = (*Store)(nil)
	_ core.Subscriber = (*Store)(nil)
)
