// Package events implements the async, non-blocking output sink for
// onset events: a channel into a single writer goroutine that batches
// JSON-lines writes and rotates files daily per symbol. The engine-
// goroutine -> buffered-channel -> writer-goroutine -> daily-rotated-
// file-with-periodic-flush architecture follows internal/logger.Logger,
// generalized from a fixed CSV schema to arbitrary JSON-serializable
// event variants and from one shared daily file to one file per symbol
// per day.
package events

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"onsetdetect/internal/model"
)

const (
	chanSize    = 4096
	bufSize     = 1 << 16
	flushPeriod = 1 * time.Second
)

// Sink is an async JSONL event writer. Emit never blocks the caller;
// under sustained backpressure it drops events rather than stall the
// pipeline, matching the hot-path-never-blocks guarantee the rest of
// the system depends on.
type Sink struct {
	ch   chan model.Event
	log  zerolog.Logger
	done chan struct{}
}

// New constructs a Sink that writes one {symbol}_{date}.jsonl file per
// symbol per UTC day under dir, and starts its background writer
// goroutine.
func New(dir string, log zerolog.Logger) *Sink {
	s := &Sink{
		ch:   make(chan model.Event, chanSize),
		log:  log,
		done: make(chan struct{}),
	}
	go s.run(dir)
	return s
}

// Emit assigns a correlation ID if the event doesn't already carry one
// and queues it for writing. Non-blocking: a full channel drops the
// event and logs a warning rather than stall the caller.
func (s *Sink) Emit(e model.Event) {
	if e.EventID() == "" {
		e.SetEventID(uuid.NewString())
	}
	select {
	case s.ch <- e:
	default:
		s.log.Warn().Str("symbol", e.EventSymbol()).Msg("event sink backed up, dropping event")
	}
}

// Close stops accepting new events and blocks until the writer
// goroutine has flushed and closed all open files.
func (s *Sink) Close() {
	close(s.ch)
	<-s.done
}

type fileHandle struct {
	file   *os.File
	writer *bufio.Writer
}

func (s *Sink) run(dir string) {
	defer close(s.done)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error().Err(err).Str("dir", dir).Msg("events: failed to create directory")
		return
	}

	open := make(map[string]*fileHandle)
	defer func() {
		for _, fh := range open {
			fh.writer.Flush()
			fh.file.Close()
		}
	}()

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				return
			}
			s.write(dir, open, e)
		case <-ticker.C:
			for _, fh := range open {
				fh.writer.Flush()
			}
		}
	}
}

func (s *Sink) write(dir string, open map[string]*fileHandle, e model.Event) {
	day := time.UnixMilli(e.EventTs()).UTC().Format("2006-01-02")
	key := e.EventSymbol() + "_" + day

	fh, ok := open[key]
	if !ok {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.jsonl", e.EventSymbol(), day))
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			s.log.Error().Err(err).Str("path", path).Msg("events: failed to open file")
			return
		}
		fh = &fileHandle{file: file, writer: bufio.NewWriterSize(file, bufSize)}
		open[key] = fh
	}

	line, err := encode(e)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", e.EventSymbol()).Msg("events: failed to marshal event")
		return
	}
	fh.writer.Write(line)
	fh.writer.WriteByte('\n')
}
