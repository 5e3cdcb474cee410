// Package log writes hourly rotated, zstd compressed JSONL files.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"hivectl.ai/internal/sim/controller"
)

const hourLayout = "2006-01-02-15"

// JSONLZstdWriter appends one JSON document per line to
// <dir>/<prefix>-<hour>.jsonl.zst, starting a new file every UTC hour.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if hour := w.now().UTC().Format(hourLayout); hour != w.hour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.hour = f, enc, hour
	w.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
	}
	w.w, w.enc, w.f, w.hour = nil, nil, nil, ""
	return errors.Join(errs...)
}

func (w *JSONLZstdWriter) path(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Files lists the files written under dir for prefix, oldest first.
func Files(dir, prefix string) ([]string, error) {
	out, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ReadJSONL decodes every line of a compressed file into a fresh T and hands
// it to fn. A file may hold several concatenated zstd frames.
func ReadJSONL[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var v T
		if err := jd.Decode(&v); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// TickLogger writes one entry per tick under <dir>/ticks.
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(dir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(dir, "ticks"), "ticks")}
}

func (l *TickLogger) WriteTick(e controller.TickLogEntry) error { return l.w.Write(e) }
func (l *TickLogger) Close() error                              { return l.w.Close() }

// FailureLogger writes runner failures under <dir>/failures.
type FailureLogger struct{ w *JSONLZstdWriter }

func NewFailureLogger(dir string) *FailureLogger {
	return &FailureLogger{w: NewJSONLZstdWriter(filepath.Join(dir, "failures"), "failures")}
}

func (l *FailureLogger) WriteFailure(f controller.FailureEntry) error { return l.w.Write(f) }
func (l *FailureLogger) Close() error                                 { return l.w.Close() }
