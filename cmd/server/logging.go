package main

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// newLogging fans every record out to a text handler on stdout and a JSON
// handler appending to <dataDir>/run.log.jsonl.
func newLogging(dataDir string, debug bool) (slog.Handler, io.Closer, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "run.log.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	}
	opts := &slog.HandlerOptions{Level: level}
	h := slogmulti.Fanout(
		slog.NewTextHandler(os.Stdout, opts),
		slog.NewJSONHandler(f, opts),
	)
	return h, f, nil
}

// component bridges h to the *log.Logger the internal packages take.
func component(h slog.Handler, name string) *log.Logger {
	l := slog.NewLogLogger(h.WithAttrs([]slog.Attr{slog.String("component", name)}), slog.LevelInfo)
	l.SetPrefix("[" + name + "] ")
	return l
}
