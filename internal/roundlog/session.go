package roundlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const (
	logFilename    = "rounds.jsonl"
	latestFilename = "latest.json"

	// maxFlushFailures is the consecutive flush failure count after
	// which a session stops recording and drops its buffer.
	maxFlushFailures = 3
)

// Session records evaluations for one session with buffered writes.
type Session struct {
	name       string
	dir        string
	logPath    string
	latestPath string
	clock      quartz.Clock
	logger     *log.Logger
	flushLimit int
	notify     func()

	mu                  sync.Mutex
	flushMu             sync.Mutex
	buffer              []Entry
	latest              *Entry
	latestDirty         bool
	consecutiveFailures int
	disabled            bool
}

func newSession(name, dir string, cfg Config, logger *log.Logger) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("roundlog: create dir: %w", err)
	}

	return &Session{
		name:       name,
		dir:        dir,
		logPath:    filepath.Join(dir, logFilename),
		latestPath: filepath.Join(dir, latestFilename),
		clock:      cfg.Clock,
		logger:     logger,
		flushLimit: cfg.FlushEntries,
		buffer:     make([]Entry, 0, cfg.FlushEntries),
	}, nil
}

// Name returns the sanitized session name.
func (s *Session) Name() string { return s.name }

// LogPath returns the path of the append-only JSONL log.
func (s *Session) LogPath() string { return s.logPath }

// LatestPath returns the path of the latest-entry snapshot.
func (s *Session) LatestPath() string { return s.latestPath }

// Record buffers one evaluation, stamping it with the session name and
// the current time. The write to disk happens on the next flush.
func (s *Session) Record(e Entry) {
	var notify func()

	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return
	}
	e.Session = s.name
	e.Timestamp = s.clock.Now()
	s.buffer = append(s.buffer, e)
	s.latest = &e
	s.latestDirty = true
	if s.flushLimit > 0 && len(s.buffer) >= s.flushLimit {
		notify = s.notify
	}
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Flush appends buffered entries to the session log and refreshes the
// latest.json snapshot.
func (s *Session) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.disabled || (len(s.buffer) == 0 && !s.latestDirty) {
		s.mu.Unlock()
		return nil
	}
	entries := append([]Entry(nil), s.buffer...)
	latest := s.latest
	s.mu.Unlock()

	if len(entries) > 0 {
		written, err := appendEntries(s.logPath, entries)
		s.trimBuffer(written)
		if err != nil {
			return err
		}
	}

	if latest != nil {
		data, err := json.MarshalIndent(latest, "", "  ")
		if err != nil {
			return err
		}
		if err := writeFileAtomic(s.latestPath, append(data, '\n'), 0o644); err != nil {
			return err
		}
		s.mu.Lock()
		s.latestDirty = false
		s.mu.Unlock()
	}
	return nil
}

// Close flushes remaining data.
func (s *Session) Close() error {
	return s.Flush()
}

// handleFlushResult updates failure tracking after a flush attempt and
// reports whether the session disabled itself.
func (s *Session) handleFlushResult(err error) (disabled bool, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.consecutiveFailures++
		if s.consecutiveFailures >= maxFlushFailures {
			dropped = len(s.buffer)
			s.buffer = nil
			s.disabled = true
			return true, dropped
		}
		return false, 0
	}

	s.consecutiveFailures = 0
	return false, 0
}

func (s *Session) trimBuffer(written int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if written <= 0 {
		return
	}
	if written >= len(s.buffer) {
		s.buffer = s.buffer[:0]
	} else {
		s.buffer = s.buffer[written:]
	}
}

// appendEntries writes entries to the log, one JSON object per line,
// and returns how many made it out.
func appendEntries(path string, entries []Entry) (int, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}
