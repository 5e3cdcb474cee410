// Package sqlitestore keeps controller memory and a tick index in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/sim/controller"
)

var _ memory.Store = (*Store)(nil)

// Store implements memory.Store. It also indexes tick summaries written
// through WriteTick; those are queued and written by a background goroutine
// so a slow disk never stalls a tick.
type Store struct {
	db *sql.DB

	ch   chan controller.TickLogEntry
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and every send on ch against close(ch).
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

func OpenSQLite(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, ch: make(chan controller.TickLogEntry, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			ns TEXT NOT NULL,
			key TEXT NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (ns, key)
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			agents INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			spawns INTEGER NOT NULL,
			writes INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) Get(ctx context.Context, ns memory.Namespace, key string) ([]byte, bool, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE ns=? AND key=?`, string(ns), key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s/%s: %w", ns, key, err)
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, ns memory.Namespace, key string, rec []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records(ns,key,data) VALUES(?,?,?)
		 ON CONFLICT(ns,key) DO UPDATE SET data=excluded.data`,
		string(ns), key, rec)
	if err != nil {
		return fmt.Errorf("sqlite set %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ns memory.Namespace, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE ns=? AND key=?`, string(ns), key); err != nil {
		return fmt.Errorf("sqlite delete %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, ns memory.Namespace) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM records WHERE ns=? ORDER BY key`, string(ns))
	if err != nil {
		return nil, fmt.Errorf("sqlite keys %s: %w", ns, err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// WriteTick queues entry for the tick index. Entries are dropped when the
// writer falls behind; the JSONL tick log remains the full record.
func (s *Store) WriteTick(entry controller.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- entry:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Dropped is the number of tick entries discarded because the queue was full.
func (s *Store) Dropped() int64 { return s.dropped.Load() }

func (s *Store) loop() {
	ctx := context.Background()
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,agents,actions,spawns,writes,errors,raw_json) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		for range s.ch {
			s.dropped.Add(1)
		}
		return
	}
	defer insert.Close()

	write := func(tx *sql.Tx, e controller.TickLogEntry) error {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		spawns := 0
		for _, sp := range e.Spawns {
			if sp.Name != "" {
				spawns++
			}
		}
		_, err = tx.Stmt(insert).Exec(int64(e.Tick), e.Agents, len(e.Actions), spawns, e.Writes, len(e.Errors), string(b))
		return err
	}

	for e := range s.ch {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.dropped.Add(1)
			continue
		}
		if err := write(tx, e); err != nil {
			_ = tx.Rollback()
			s.dropped.Add(1)
			continue
		}
		// Batch whatever else is already queued into the same transaction.
	drain:
		for {
			select {
			case more, ok := <-s.ch:
				if !ok {
					break drain
				}
				if err := write(tx, more); err != nil {
					s.dropped.Add(1)
				}
			default:
				break drain
			}
		}
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
		}
	}
}

// TickRow is one indexed tick.
type TickRow struct {
	Tick    uint64
	Agents  int
	Actions int
	Spawns  int
	Writes  int
	Errors  int
	Entry   controller.TickLogEntry
}

// RecentTicks returns up to limit indexed ticks, newest first.
func (s *Store) RecentTicks(ctx context.Context, limit int) ([]TickRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick,agents,actions,spawns,writes,errors,raw_json FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickRow
	for rows.Next() {
		var (
			r    TickRow
			tick int64
			raw  string
		)
		if err := rows.Scan(&tick, &r.Agents, &r.Actions, &r.Spawns, &r.Writes, &r.Errors, &raw); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		if err := json.Unmarshal([]byte(raw), &r.Entry); err != nil {
			return nil, fmt.Errorf("tick %d: %w", r.Tick, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
