// Package journal records the raw event stream of a session into SQLite and
// replays it into a fresh context.
package journal

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/wayland"

	_ "modernc.org/sqlite"
)

// ErrJournalClosed is returned by operations on a closed journal
var ErrJournalClosed = errors.New("journal is closed")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started INTEGER NOT NULL,   -- UnixNano
    seat TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session INTEGER NOT NULL REFERENCES sessions(id),
    time INTEGER NOT NULL,      -- UnixNano
    kind TEXT NOT NULL,
    serial INTEGER NOT NULL DEFAULT 0,
    code INTEGER NOT NULL DEFAULT 0,
    mapped INTEGER NOT NULL DEFAULT 0,
    touch_id INTEGER NOT NULL DEFAULT 0,
    flags INTEGER NOT NULL DEFAULT 0,
    pressed INTEGER NOT NULL DEFAULT 0,
    x REAL NOT NULL DEFAULT 0,
    y REAL NOT NULL DEFAULT 0,
    amount REAL NOT NULL DEFAULT 0,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    value INTEGER NOT NULL DEFAULT 0,
    rate INTEGER NOT NULL DEFAULT 0,
    delay INTEGER NOT NULL DEFAULT 0,
    keys BLOB,
    mods_depressed INTEGER NOT NULL DEFAULT 0,
    mods_latched INTEGER NOT NULL DEFAULT 0,
    mods_locked INTEGER NOT NULL DEFAULT 0,
    mods_group INTEGER NOT NULL DEFAULT 0,
    text TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session, id);
`

const insertEvent = `INSERT INTO events (
    session, time, kind, serial, code, mapped, touch_id, flags, pressed, x, y, amount,
    width, height, value, rate, delay, keys,
    mods_depressed, mods_latched, mods_locked, mods_group, text, name
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectEvents = `SELECT
    time, kind, serial, code, mapped, touch_id, flags, pressed, x, y, amount,
    width, height, value, rate, delay, keys,
    mods_depressed, mods_latched, mods_locked, mods_group, text, name
FROM events WHERE session = ? ORDER BY id`

// Options tune write batching
type Options struct {
	BatchSize    int
	BatchTimeout time.Duration
	Buffer       int
}

// DefaultOptions returns the batching used by the daemon
func DefaultOptions() Options {
	return Options{
		BatchSize:    128,
		BatchTimeout: time.Second,
		Buffer:       4096,
	}
}

// Session is one recorded run of the daemon
type Session struct {
	ID      int64
	Started time.Time
	Seat    string
	Events  int
}

// Journal is an append-only event store. Record never blocks the dispatch
// goroutine: events are queued and written in batches by a background
// goroutine.
type Journal struct {
	db   *sql.DB
	opts Options

	mu      sync.Mutex
	session int64
	closed  bool
	dropped uint64

	queue   chan wayland.Event
	flushCh chan chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Open opens or creates the journal at path
func Open(path string) (*Journal, error) {
	return OpenWithOptions(path, DefaultOptions())
}

// OpenWithOptions opens the journal with custom batching
func OpenWithOptions(path string, opts Options) (*Journal, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultOptions().BatchTimeout
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultOptions().Buffer
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	j := &Journal{
		db:      db,
		opts:    opts,
		queue:   make(chan wayland.Event, opts.Buffer),
		flushCh: make(chan chan struct{}),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go j.writer()
	return j, nil
}

// Begin starts a new session. Events recorded afterwards belong to it.
func (j *Journal) Begin(seat string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrJournalClosed
	}

	res, err := j.db.Exec("INSERT INTO sessions (started, seat) VALUES (?, ?)", time.Now().UnixNano(), seat)
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}
	j.session = id
	logger.Infof("Journal session %d started", id)
	return id, nil
}

// SetSeat labels the current session, once the seat name is known
func (j *Journal) SetSeat(seat string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}
	if j.session == 0 {
		return errors.New("no session started")
	}
	if _, err := j.db.Exec("UPDATE sessions SET seat = ? WHERE id = ?", seat, j.session); err != nil {
		return fmt.Errorf("failed to label session: %w", err)
	}
	return nil
}

// Record queues ev for writing. Events arriving before Begin, after Close or
// while the queue is full are dropped.
func (j *Journal) Record(ev wayland.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed || j.session == 0 {
		return
	}
	select {
	case j.queue <- ev:
	default:
		j.dropped++
		if j.dropped == 1 || j.dropped%1000 == 0 {
			logger.Warnf("Journal queue full, %d events dropped", j.dropped)
		}
	}
}

// Dropped returns the number of events lost to a full queue
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Flush blocks until every queued event is written
func (j *Journal) Flush() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrJournalClosed
	}
	j.mu.Unlock()

	done := make(chan struct{})
	select {
	case j.flushCh <- done:
		<-done
		return nil
	case <-j.doneCh:
		return ErrJournalClosed
	}
}

// Close writes pending events and closes the database
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	close(j.stopCh)
	<-j.doneCh
	return j.db.Close()
}

func (j *Journal) writer() {
	defer close(j.doneCh)

	batch := make([]wayland.Event, 0, j.opts.BatchSize)
	timer := time.NewTimer(j.opts.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.write(batch); err != nil {
			logger.Errorf("Failed to write %d journal events: %v", len(batch), err)
		}
		batch = batch[:0]
	}
	drain := func() {
		for {
			select {
			case ev := <-j.queue:
				batch = append(batch, ev)
			default:
				flush()
				return
			}
		}
	}

	for {
		select {
		case ev := <-j.queue:
			batch = append(batch, ev)
			if len(batch) >= j.opts.BatchSize {
				flush()
				timer.Reset(j.opts.BatchTimeout)
			}
		case <-timer.C:
			flush()
			timer.Reset(j.opts.BatchTimeout)
		case done := <-j.flushCh:
			drain()
			close(done)
		case <-j.stopCh:
			drain()
			return
		}
	}
}

// write stores a batch in one transaction
func (j *Journal) write(batch []wayland.Event) error {
	j.mu.Lock()
	session := j.session
	j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(insertEvent)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range batch {
		if _, err := stmt.Exec(
			session, ev.Time.UnixNano(), string(ev.Kind), ev.Serial, ev.Code, ev.Mapped, ev.ID, ev.Flags,
			ev.Pressed, ev.X, ev.Y, ev.Amount,
			ev.Width, ev.Height, ev.Value, ev.Rate, ev.Delay, packKeys(ev.Keys),
			ev.Mods[0], ev.Mods[1], ev.Mods[2], ev.Mods[3], ev.Text, ev.Name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", ev.Kind, err)
		}
	}
	return tx.Commit()
}

// Sessions lists recorded sessions, oldest first
func (j *Journal) Sessions() ([]Session, error) {
	rows, err := j.db.Query(`SELECT s.id, s.started, s.seat, COUNT(e.id)
FROM sessions s LEFT JOIN events e ON e.session = s.id
GROUP BY s.id ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var started int64
		if err := rows.Scan(&s.ID, &started, &s.Seat, &s.Events); err != nil {
			return nil, err
		}
		s.Started = time.Unix(0, started)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LatestSession returns the id of the most recent session
func (j *Journal) LatestSession() (int64, error) {
	var id sql.NullInt64
	if err := j.db.QueryRow("SELECT MAX(id) FROM sessions").Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to find latest session: %w", err)
	}
	if !id.Valid {
		return 0, errors.New("journal has no sessions")
	}
	return id.Int64, nil
}

// Events calls fn for every event of session in recording order
func (j *Journal) Events(ctx context.Context, session int64, fn func(wayland.Event) error) error {
	rows, err := j.db.QueryContext(ctx, selectEvents, session)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev   wayland.Event
			ts   int64
			kind string
			keys []byte
		)
		if err := rows.Scan(
			&ts, &kind, &ev.Serial, &ev.Code, &ev.Mapped, &ev.ID, &ev.Flags, &ev.Pressed, &ev.X, &ev.Y, &ev.Amount,
			&ev.Width, &ev.Height, &ev.Value, &ev.Rate, &ev.Delay, &keys,
			&ev.Mods[0], &ev.Mods[1], &ev.Mods[2], &ev.Mods[3], &ev.Text, &ev.Name,
		); err != nil {
			return fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Time = time.Unix(0, ts)
		ev.Kind = wayland.EventKind(kind)
		ev.Keys = unpackKeys(keys)
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Replay applies every event of session to d and returns how many were
// applied
func (j *Journal) Replay(ctx context.Context, session int64, d *wayland.Dispatcher) (int, error) {
	n := 0
	err := j.Events(ctx, session, func(ev wayland.Event) error {
		d.Apply(ev)
		n++
		return nil
	})
	return n, err
}

func packKeys(keys []uint32) []byte {
	if len(keys) == 0 {
		return nil
	}
	out := make([]byte, 0, len(keys)*4)
	for _, k := range keys {
		out = binary.LittleEndian.AppendUint32(out, k)
	}
	return out
}

func unpackKeys(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	keys := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		keys = append(keys, binary.LittleEndian.Uint32(data[i:]))
	}
	return keys
}
