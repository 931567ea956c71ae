// Package journal appends compressed JSONL records of save operations
// and slot transitions under the data directory.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// SaveRecord describes one completed (or failed) save operation.
type SaveRecord struct {
	At         string `json:"at"`
	Outcome    string `json:"outcome"` // "ok" | "error"
	Error      string `json:"error,omitempty"`
	Path       string `json:"path,omitempty"`
	Documents  int    `json:"documents"`
	Heroes     int    `json:"heroes"`
	Pets       int    `json:"pets"`
	Familiars  int    `json:"familiars"`
	DurationMs int64  `json:"duration_ms"`
}

// SlotRecord describes one assignment-slot transition.
type SlotRecord struct {
	At       string `json:"at"`
	Event    string `json:"event"` // assign | cancel | complete | improve
	SlotID   int    `json:"slot_id"`
	HeroID   int    `json:"hero_id,omitempty"`
	Status   string `json:"status"`
	Building string `json:"building,omitempty"`
}

// Now formats a timestamp the way journal records carry it.
func Now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// SaveLogger journals save operations (compressed).
type SaveLogger struct{ w *JSONLZstdWriter }

func NewSaveLogger(dataDir string) *SaveLogger {
	return &SaveLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "journal"), "saves")}
}

func (l *SaveLogger) WriteSave(r SaveRecord) error { return l.w.Write(r) }
func (l *SaveLogger) Close() error                 { return l.w.Close() }

// SlotLogger journals assignment-slot transitions (compressed).
type SlotLogger struct{ w *JSONLZstdWriter }

func NewSlotLogger(dataDir string) *SlotLogger {
	return &SlotLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "journal"), "slots")}
}

func (l *SlotLogger) WriteSlot(r SlotRecord) error { return l.w.Write(r) }
func (l *SlotLogger) Close() error                 { return l.w.Close() }
