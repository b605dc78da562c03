// Package indexdb keeps a queryable sqlite index next to the JSONL tick log.
// Writes are queued to a single writer goroutine and batched into
// transactions; the simulation never waits on disk.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/introspection"
	"cellworld.sim/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropStats    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqStats
	reqSnapshot
	reqMeta
)

type req struct {
	kind    reqKind
	worldID string

	tick     world.TickLogEntry
	stats    introspection.Stats
	snapshot snapshotRow
	key, val string
}

type snapshotRow struct {
	Tick      uint64
	Path      string
	RunID     string
	LiveCells int
}

// QueueStats counts requests dropped because the writer fell behind.
type QueueStats struct {
	DropTickTotal     uint64
	DropStatsTotal    uint64
	DropSnapshotTotal uint64
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
		ch: make(chan req, 65536),
	}
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
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS stats (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			live_cells INTEGER NOT NULL,
			live_cardinals INTEGER NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			mean_age REAL NOT NULL,
			spawn_fraction REAL NOT NULL,
			mean_received REAL NOT NULL,
			mean_inter_messages REAL NOT NULL,
			mean_intra_messages REAL NOT NULL,
			max_balance REAL NOT NULL,
			mean_balance REAL NOT NULL,
			consistent INTEGER NOT NULL,
			kin_group_age_json TEXT NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			run_id TEXT NOT NULL,
			live_cells INTEGER NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
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

func (s *SQLiteIndex) Stats() QueueStats {
	return QueueStats{
		DropTickTotal:     s.dropTick.Load(),
		DropStatsTotal:    s.dropStats.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

// SetMeta records a run-level key such as the run id or the tuning digest.
func (s *SQLiteIndex) SetMeta(key, value string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqMeta, key: key, val: value}
}

// WriteStats implements world.StatsWriter.
func (s *SQLiteIndex) WriteStats(worldID string, st introspection.Stats) error {
	s.enqueue(req{kind: reqStats, worldID: worldID, stats: st}, &s.dropStats)
	return nil
}

// ForWorld returns a world.TickLogger that indexes tick digests under worldID.
func (s *SQLiteIndex) ForWorld(worldID string) world.TickLogger {
	return tickIndex{s: s, worldID: worldID}
}

type tickIndex struct {
	s       *SQLiteIndex
	worldID string
}

func (t tickIndex) WriteTick(e world.TickLogEntry) error {
	t.s.enqueue(req{kind: reqTick, worldID: t.worldID, tick: e}, &t.s.dropTick)
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	live := 0
	for _, c := range snap.Cells {
		if c.Alive {
			live++
		}
	}
	s.enqueue(req{
		kind:    reqSnapshot,
		worldID: snap.Header.WorldID,
		snapshot: snapshotRow{
			Tick:      snap.Header.Tick,
			Path:      path,
			RunID:     snap.Header.RunID,
			LiveCells: live,
		},
	}, &s.dropSnapshot)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	upsertMeta, _ := s.db.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(world_id,tick,digest) VALUES(?,?,?)`)
	insertStats, _ := s.db.Prepare(`INSERT OR REPLACE INTO stats(world_id,tick,live_cells,live_cardinals,births,deaths,mean_age,spawn_fraction,mean_received,mean_inter_messages,mean_intra_messages,max_balance,mean_balance,consistent,kin_group_age_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(world_id,tick,path,run_id,live_cells) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{upsertMeta, insertTick, insertStats, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
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
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMeta:
			exec(upsertMeta, r.key, r.val)
		case reqTick:
			exec(insertTick, r.worldID, int64(r.tick.Tick), r.tick.Digest)
		case reqStats:
			st := r.stats
			kin, _ := json.Marshal(st.MeanKinGroupAge)
			exec(insertStats,
				r.worldID, int64(st.Tick),
				st.LiveCells, st.LiveCardinals, st.Births, st.Deaths,
				st.MeanAge, st.SpawnFraction, st.MeanReceived,
				st.MeanInterMessages, st.MeanIntraMessages,
				st.MaxBalance, st.MeanBalance, st.Consistent,
				string(kin),
			)
		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, r.worldID, int64(sn.Tick), sn.Path, sn.RunID, sn.LiveCells)
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
