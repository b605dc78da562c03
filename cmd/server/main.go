package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"cellworld.sim/internal/persistence/archive"
	"cellworld.sim/internal/persistence/indexdb"
	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/multiworld"
	"cellworld.sim/internal/sim/tuning"
	"cellworld.sim/internal/transport/observer"
)

type serverConfig struct {
	ConfigDir  string
	TuningPath string
	TilesPath  string
	DataDir    string
	Addr       string
	DisableDB  bool

	SnapshotPath string
	LoadLatest   bool

	Updates uint64
	Seconds float64
}

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		tilesPath  = flag.String("tiles", "", "path to tiles.yaml (default: <configs>/tiles.yaml if present)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address for health, metrics, and observers (empty to disable)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite stats and snapshot index")

		snapPath   = flag.String("snapshot", "", "snapshot to resume from (single tile only)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume each tile from its newest snapshot when -snapshot is empty")

		updates = flag.Uint64("updates", 0, "stop at this tick (overrides run.updates when > 0)")
		seconds = flag.Float64("seconds", 0, "stop after this many seconds (overrides run.seconds when > 0)")
		debug   = flag.Bool("log-debug", false, "log at debug level")
	)
	flag.Parse()

	h, closer, err := newLogging(*dataDir, *debug)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closer.Close()
	logger := component(h, "server")

	err = run(serverConfig{
		ConfigDir:    *configDir,
		TuningPath:   *tuningPath,
		TilesPath:    *tilesPath,
		DataDir:      *dataDir,
		Addr:         strings.TrimSpace(*addr),
		DisableDB:    *disableDB,
		SnapshotPath: strings.TrimSpace(*snapPath),
		LoadLatest:   *loadLatest,
		Updates:      *updates,
		Seconds:      *seconds,
	}, h, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(cfg serverConfig, h slog.Handler, logger *log.Logger) error {
	tp := cfg.TuningPath
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if errors.Is(err, os.ErrNotExist) && cfg.TuningPath == "" {
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune, err = tuning.Defaults(), nil
	}
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	factory, err := tune.Factory()
	if err != nil {
		return fmt.Errorf("substrate: %w", err)
	}
	base := tune.WorldConfig()
	if cfg.Updates > 0 {
		base.RunUpdates = cfg.Updates
	}
	if cfg.Seconds > 0 {
		base.RunSeconds = cfg.Seconds
	}

	tiles, err := loadTiles(cfg, tune.World.ID)
	if err != nil {
		return err
	}
	if cfg.SnapshotPath != "" && len(tiles.Tiles) != 1 {
		return fmt.Errorf("-snapshot needs a single tile, have %d", len(tiles.Tiles))
	}

	mgr, err := multiworld.NewManager(tiles, base, factory, component(h, "world"))
	if err != nil {
		return fmt.Errorf("build tiles: %w", err)
	}

	var idx *indexdb.SQLiteIndex
	if !cfg.DisableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "cellworld.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
	}

	runID := uuid.NewString()
	persist := make([]*tilePersistence, 0, len(mgr.Tiles()))
	for _, t := range mgr.Tiles() {
		w := t.World
		worldDir := filepath.Join(cfg.DataDir, "worlds", t.Spec.ID)
		if err := os.MkdirAll(worldDir, 0o755); err != nil {
			return err
		}

		snapPath := cfg.SnapshotPath
		if snapPath == "" && cfg.LoadLatest {
			if snapPath, err = archive.Latest(snapshotDir(worldDir)); err != nil {
				return fmt.Errorf("tile %s: find snapshot: %w", t.Spec.ID, err)
			}
		}
		if snapPath != "" {
			snap, err := snapshot.ReadSnapshot(snapPath)
			if err != nil {
				return fmt.Errorf("tile %s: read snapshot: %w", t.Spec.ID, err)
			}
			if snap.Header.WorldID != "" && snap.Header.WorldID != t.Spec.ID {
				return fmt.Errorf("snapshot world id mismatch: tile=%s snap=%s", t.Spec.ID, snap.Header.WorldID)
			}
			if err := w.ImportSnapshot(snap); err != nil {
				return fmt.Errorf("tile %s: import snapshot: %w", t.Spec.ID, err)
			}
			logger.Printf("tile %s: resumed from snapshot=%s tick=%d run=%s", t.Spec.ID, filepath.Base(snapPath), w.GetUpdate(), snap.Header.RunID)
		}
		w.SetRunID(runID)

		tileLog := component(h, "tile "+t.Spec.ID)
		persist = append(persist, attachPersistence(w, worldDir, idx, persistOptions{
			ArchiveEveryTicks: uint64(max(tune.Run.ArchiveEveryTicks, 0)),
			KeepSnapshots:     tune.Run.KeepSnapshots,
		}, tileLog))
	}
	if idx != nil {
		idx.SetMeta("run_id", runID)
		idx.SetMeta("tuning_path", tp)
		idx.SetMeta("tiles", fmt.Sprint(len(mgr.Tiles())))
	}

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Addr != "" {
		hub := observer.NewHub(runID, worldsOf(mgr), component(h, "observer"))
		for _, t := range mgr.Tiles() {
			t.World.SetFrameSink(hub)
		}
		srv := newHTTPServer(cfg.Addr, mgr, hub, idx)
		go serveHTTP(ctx, srv, logger)
	}

	logger.Printf("run %s: %d tile(s), substrate=%s", runID, len(mgr.Tiles()), tune.Substrate.Kind)
	final, runErr := mgr.Run(ctx)
	logger.Printf("stopped: %v", final)

	for i, t := range mgr.Tiles() {
		var last *snapshot.SnapshotV1
		if snap, err := t.World.ExportSnapshot(); err != nil {
			logger.Printf("tile %s: final snapshot: %v", t.Spec.ID, err)
		} else {
			last = &snap
		}
		if err := persist[i].Close(last); err != nil {
			logger.Printf("tile %s: close tick log: %v", t.Spec.ID, err)
		}
	}
	if idx != nil {
		if s := idx.Stats(); s.DropTickTotal+s.DropStatsTotal+s.DropSnapshotTotal > 0 {
			logger.Printf("index dropped ticks=%d stats=%d snapshots=%d", s.DropTickTotal, s.DropStatsTotal, s.DropSnapshotTotal)
		}
	}
	return runErr
}

func loadTiles(cfg serverConfig, defaultID string) (multiworld.Config, error) {
	path := cfg.TilesPath
	if path == "" {
		p := filepath.Join(cfg.ConfigDir, "tiles.yaml")
		if _, err := os.Stat(p); err == nil {
			path = p
		}
	}
	if path == "" {
		return multiworld.Config{Tiles: []multiworld.TileSpec{{ID: defaultID}}}, nil
	}
	tiles, err := multiworld.Load(path)
	if err != nil {
		return tiles, fmt.Errorf("load tiles: %w", err)
	}
	return tiles, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
