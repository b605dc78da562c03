package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"cellworld.sim/internal/persistence/indexdb"
	"cellworld.sim/internal/sim/introspection"
	"cellworld.sim/internal/sim/multiworld"
	"cellworld.sim/internal/sim/world"
	"cellworld.sim/internal/transport/observer"
)

func worldsOf(m *multiworld.Manager) []*world.World {
	out := make([]*world.World, 0, len(m.Tiles()))
	for _, t := range m.Tiles() {
		out = append(out, t.World)
	}
	return out
}

func newHTTPServer(addr string, mgr *multiworld.Manager, hub *observer.Hub, idx *indexdb.SQLiteIndex) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(rw http.ResponseWriter, r *http.Request) {
		type tileStats struct {
			WorldID string               `json:"world_id"`
			Tick    uint64               `json:"tick"`
			Stats   *introspection.Stats `json:"stats,omitempty"`
		}
		var resp []tileStats
		for _, t := range mgr.Tiles() {
			resp = append(resp, tileStats{WorldID: t.Spec.ID, Tick: t.World.GetUpdate(), Stats: t.World.LastStats()})
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, mgr, hub, idx)
	})
	mux.HandleFunc("/observer/bootstrap", hub.BootstrapHandler())
	mux.HandleFunc("/observer/ws", hub.WSHandler())

	if envBool("CW_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func serveHTTP(ctx context.Context, srv *http.Server, logger *log.Logger) {
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()
	logger.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("http: %v", err)
	}
}

// writeMetrics emits a minimal Prometheus exposition.
func writeMetrics(rw http.ResponseWriter, mgr *multiworld.Manager, hub *observer.Hub, idx *indexdb.SQLiteIndex) {
	fmt.Fprintf(rw, "# HELP cellworld_tick Next tick each tile will run.\n")
	fmt.Fprintf(rw, "# TYPE cellworld_tick gauge\n")
	for _, t := range mgr.Tiles() {
		fmt.Fprintf(rw, "cellworld_tick{world=%q} %d\n", t.Spec.ID, t.World.GetUpdate())
	}

	fmt.Fprintf(rw, "# HELP cellworld_stat Last sampled introspection values.\n")
	fmt.Fprintf(rw, "# TYPE cellworld_stat gauge\n")
	for _, t := range mgr.Tiles() {
		st := t.World.LastStats()
		if st == nil {
			continue
		}
		id := t.Spec.ID
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %d\n", id, "live_cells", st.LiveCells)
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %d\n", id, "births", st.Births)
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %d\n", id, "deaths", st.Deaths)
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %.6f\n", id, "mean_age", st.MeanAge)
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %.6f\n", id, "mean_balance", st.MeanBalance)
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %.6f\n", id, "max_balance", st.MaxBalance)
		fmt.Fprintf(rw, "cellworld_stat{world=%q,metric=%q} %.6f\n", id, "spawn_fraction", st.SpawnFraction)
	}

	fmt.Fprintf(rw, "# HELP cellworld_observer_clients Connected observer sessions.\n")
	fmt.Fprintf(rw, "# TYPE cellworld_observer_clients gauge\n")
	fmt.Fprintf(rw, "cellworld_observer_clients %d\n", hub.Clients())

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP cellworld_index_dropped_total Index writes dropped because the writer fell behind.\n")
	fmt.Fprintf(rw, "# TYPE cellworld_index_dropped_total counter\n")
	fmt.Fprintf(rw, "cellworld_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "cellworld_index_dropped_total{kind=%q} %d\n", "stats", s.DropStatsTotal)
	fmt.Fprintf(rw, "cellworld_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
