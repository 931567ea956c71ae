// Package indexdb maintains an optional sqlite read-model of save
// operations and slot transitions. It is an index, not the source of
// truth: the JSON save documents and the journal remain authoritative,
// so writes are buffered and dropped under backpressure rather than
// ever stalling the game.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"villagekeep/internal/persistence/journal"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqSlot
)

type req struct {
	kind reqKind

	save journal.SaveRecord
	slot journal.SlotRecord
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a fine
	// durability/perf tradeoff for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			path TEXT,
			documents INTEGER NOT NULL,
			heroes INTEGER NOT NULL,
			pets INTEGER NOT NULL,
			familiars INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_at ON saves(at);`,
		`CREATE TABLE IF NOT EXISTS slot_events (
			at TEXT NOT NULL,
			event TEXT NOT NULL,
			slot INTEGER NOT NULL,
			hero INTEGER NOT NULL,
			status TEXT NOT NULL,
			building TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_slot_events_slot_at ON slot_events(slot, at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordSave(r journal.SaveRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		// Drop if the indexer falls behind; the journal remains the
		// source of truth.
	}
}

func (s *SQLiteIndex) RecordSlotEvent(r journal.SlotRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSlot, slot: r}:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSave, _ := s.db.Prepare(`INSERT INTO saves(at,outcome,error,path,documents,heroes,pets,familiars,duration_ms) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSlot, _ := s.db.Prepare(`INSERT INTO slot_events(at,event,slot,hero,status,building) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertSlot != nil {
			_ = insertSlot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 64
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSave:
			if insertSave == nil {
				continue
			}
			sr := r.save
			if _, err := tx.Stmt(insertSave).Exec(
				sr.At, sr.Outcome, sr.Error, sr.Path,
				sr.Documents, sr.Heroes, sr.Pets, sr.Familiars, sr.DurationMs,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSlot:
			if insertSlot == nil {
				continue
			}
			sl := r.slot
			if _, err := tx.Stmt(insertSlot).Exec(
				sl.At, sl.Event, sl.SlotID, sl.HeroID, sl.Status, sl.Building,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}

// CountSaves counts recorded save operations, optionally by outcome.
// Flush-sensitive callers (tests, admin views) should Close first.
func (s *SQLiteIndex) CountSaves(outcome string) (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM saves WHERE outcome = ? OR ? = ''`, outcome, outcome)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountSlotEvents counts recorded slot transitions, optionally by event.
func (s *SQLiteIndex) CountSlotEvents(event string) (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM slot_events WHERE event = ? OR ? = ''`, event, event)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
