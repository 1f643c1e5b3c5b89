// Package persistence stores the simulation's event stream and world
// state samples in a SQLite database for offline analysis.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sonder-sim/sonder/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tick        INTEGER NOT NULL,
	kind        TEXT    NOT NULL,
	entity_id   INTEGER NOT NULL,
	generation  INTEGER NOT NULL,
	x           INTEGER NOT NULL,
	y           INTEGER NOT NULL,
	target_id   INTEGER NOT NULL,
	traits      TEXT,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_events_tick ON game_events(tick);
CREATE INDEX IF NOT EXISTS idx_game_events_kind ON game_events(kind);

CREATE TABLE IF NOT EXISTS world_state (
	tick        INTEGER PRIMARY KEY,
	entities    INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
`

// SQLiteSink implements events.Sink backed by a SQLite database. Records
// are handed off to a writer goroutine through a buffered channel so the
// simulation never waits on disk; inserts are batched per transaction.
// Wall-clock timestamps are stamped here, at insert time, keeping the
// core deterministic.
type SQLiteSink struct {
	db *sql.DB
	ch chan events.Event
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
	err    error
}

// NewSQLiteSink opens (or creates) the database at path and starts the
// writer. Use Close to drain and release it.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting synchronous mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &SQLiteSink{
		db: db,
		ch: make(chan events.Event, 1024),
	}
	s.wg.Add(1)
	go s.writer()
	return s, nil
}

// Record implements events.Sink. Records arriving after Close are
// dropped.
func (s *SQLiteSink) Record(ev events.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.ch <- ev
}

// SaveWorldState upserts one population sample.
func (s *SQLiteSink) SaveWorldState(tick int64, entityCount int) error {
	_, err := s.db.Exec(
		`INSERT INTO world_state (tick, entities, recorded_at) VALUES (?, ?, ?)
		 ON CONFLICT(tick) DO UPDATE SET entities = excluded.entities, recorded_at = excluded.recorded_at`,
		tick, entityCount, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving world state: %w", err)
	}
	return nil
}

// Close drains buffered records, waits for the writer, and closes the
// database. It returns the first write error encountered, if any.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.ch)
	s.wg.Wait()

	dbErr := s.db.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return dbErr
}

func (s *SQLiteSink) writer() {
	defer s.wg.Done()

	batch := make([]events.Event, 0, 256)
	for ev := range s.ch {
		batch = append(batch[:0], ev)
	drain:
		for len(batch) < cap(batch) {
			select {
			case more, ok := <-s.ch:
				if !ok {
					break drain
				}
				batch = append(batch, more)
			default:
				break drain
			}
		}
		if err := s.insert(batch); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
	}
}

func (s *SQLiteSink) insert(batch []events.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO game_events (tick, kind, entity_id, generation, x, y, target_id, traits, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ev := range batch {
		var traits any
		if ev.Traits != nil {
			data, err := json.Marshal(ev.Traits)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("encoding traits: %w", err)
			}
			traits = string(data)
		}
		if _, err := stmt.Exec(
			ev.Tick, ev.Kind.String(), ev.EntityID, ev.Generation,
			ev.X, ev.Y, ev.TargetID, traits, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}
