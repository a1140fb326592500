// Package postgres stores notes in a PostgreSQL table and pushes changes to
// subscribers through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/thoughts/pkg/core"
)

// Channel is the NOTIFY channel the notes trigger publishes collection names on.
const Channel = "notes_changed"

// Config holds the configuration for the Postgres store.
type Config struct {
	Logger *slog.Logger
	// ErrorHandler receives failures of listening connections.
	ErrorHandler func(error)
}

// Store implements core.Store and core.Subscriber on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	config Config

	mu            sync.Mutex
	listeners     int
	notifications int
	listenErrors  int
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// NewStore wraps a pool. The schema must have been migrated.
func NewStore(pool *pgxpool.Pool, config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{pool: pool, config: config}
}

// Create implements core.Store. Timestamps come from the database clock.
func (s *Store) Create(ctx context.Context, collection string, p core.Payload) (string, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	query := `
		INSERT INTO notes (collection, text, created_at)
		VALUES ($1, $2, CASE WHEN $3::boolean THEN now() ELSE NULL END)
		RETURNING id::text
	`

	var id string
	if err := s.pool.QueryRow(ctx, query, collection, p.Text, p.ServerTimestamp).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert note: %w", err)
	}
	return id, nil
}

// Delete implements core.Store. IDs that are not UUIDs cannot exist and are ignored.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		s.config.Logger.Debug("ignoring delete of malformed id", "collection", collection, "id", id)
		return nil
	}

	query := `
		DELETE FROM notes
		WHERE collection = $1 AND id = $2::uuid
	`

	if _, err := s.pool.Exec(ctx, query, collection, id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// Query implements core.Store. Notes without a timestamp sort as oldest.
func (s *Store) Query(ctx context.Context, collection string, order core.Order) ([]core.Note, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	clause, err := orderClause(order)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id::text, text, created_at
		FROM notes
		WHERE collection = $1
		ORDER BY ` + clause

	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []core.Note{}
	for rows.Next() {
		var note core.Note
		var createdAt *time.Time

		if err := rows.Scan(&note.ID, &note.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if createdAt != nil {
			note.CreatedAt = createdAt.UTC()
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return notes, nil
}

func orderClause(order core.Order) (string, error) {
	if order.IsZero() {
		return "seq ASC", nil
	}
	if order.Field != core.FieldCreatedAt {
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedOrder, order.Field)
	}
	if order.Direction == core.Descending {
		return "created_at DESC NULLS LAST, seq DESC", nil
	}
	return "created_at ASC NULLS FIRST, seq ASC", nil
}

// Subscribe implements core.Subscriber. Each subscription holds one pooled
// connection in LISTEN mode until it is closed.
func (s *Store) Subscribe(ctx context.Context, collection string) (core.Subscription, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	feed := core.NewFeed(cancel)

	notes, err := s.Query(ctx, collection, core.OrderNone)
	if err != nil {
		cancel()
		s.release(conn)
		return nil, err
	}
	feed.Send(notes)

	s.mu.Lock()
	s.listeners++
	s.mu.Unlock()

	lifecycle.Go(listenCtx, func(ctx context.Context) error {
		defer s.release(conn)
		defer func() {
			s.mu.Lock()
			s.listeners--
			s.mu.Unlock()
		}()
		return s.listen(ctx, conn, collection, feed)
	}, lifecycle.WithErrorHandler(func(err error) {
		s.reportListenError(fmt.Errorf("listener for %s: %w", collection, err))
	}))

	return feed, nil
}

// listen re-reads the collection on every notification naming it.
// A broken connection ends the feed.
func (s *Store) listen(ctx context.Context, conn *pgxpool.Conn, collection string, feed *core.Feed) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.reportListenError(fmt.Errorf("failed to wait for notification: %w", err))
			_ = feed.Close()
			return nil
		}
		if n.Channel != Channel || n.Payload != collection {
			continue
		}

		s.mu.Lock()
		s.notifications++
		s.mu.Unlock()

		notes, err := s.Query(ctx, collection, core.OrderNone)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.reportListenError(err)
			continue
		}
		if !feed.Send(notes) {
			return nil
		}
	}
}

// release returns a listening connection to the pool. A connection whose
// UNLISTEN fails is destroyed instead, so it never carries stale state.
func (s *Store) release(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN "+Channel); err != nil {
		s.config.Logger.Debug("unlisten failed", "error", err)
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}

func (s *Store) reportListenError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.config.Logger.Error("postgres listener error", "error", err)

	s.mu.Lock()
	s.listenErrors++
	s.mu.Unlock()

	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}

var (
	_ core.Store      = (*Store)(nil)
	_ core.Subscriber = (*Store)(nil)
)
