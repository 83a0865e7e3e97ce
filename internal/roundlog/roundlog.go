// Package roundlog persists evaluation history as per-session JSONL
// logs, with an atomically replaced latest.json snapshot per session so
// other tools can poll the most recent decision without tailing.
package roundlog

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Entry is one recorded evaluation: the observation that came in and
// the numbers that went back out. Session and Timestamp are stamped by
// Record.
type Entry struct {
	Session         string         `json:"session"`
	Timestamp       time.Time      `json:"timestamp"`
	Seen            map[string]int `json:"seen,omitempty"`
	Hand            []int          `json:"hand,omitempty"`
	Bank            int            `json:"bank"`
	BustProbability float64        `json:"bust_probability"`
	ExpectedValue   float64        `json:"expected_value"`
	ExpectedBank    float64        `json:"expected_bank"`
	Recommendation  string         `json:"recommendation"`
}

// Config configures the recorder.
type Config struct {
	BaseDir       string
	FlushInterval time.Duration
	FlushEntries  int
	Clock         quartz.Clock
}

// Recorder coordinates flushing for multiple session logs.
type Recorder struct {
	cfg    Config
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	flushReq chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewRecorder creates and starts a round-log recorder.
func NewRecorder(logger *log.Logger, cfg Config) *Recorder {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "rounds"
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.FlushEntries <= 0 {
		cfg.FlushEntries = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	r := &Recorder{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		flushReq: make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Shutdown stops the ticker and flushes all sessions.
func (r *Recorder) Shutdown() {
	close(r.stop)
	r.wg.Wait()
	r.flushAll()
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, session := range sessions {
		if err := session.Close(); err != nil {
			r.logger.Error("round log flush on shutdown failed", "error", err)
		}
	}
}

// Session returns the log for the given session id, creating it on
// first use. Ids are sanitized into directory names, so distinct ids
// that sanitize alike share a log.
func (r *Recorder) Session(id string) (*Session, error) {
	name := sanitizeSession(id)

	r.mu.RLock()
	session, ok := r.sessions[name]
	r.mu.RUnlock()
	if ok {
		return session, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[name]; ok {
		return session, nil
	}

	dir := filepath.Join(r.cfg.BaseDir, "session-"+name)
	session, err := newSession(name, dir, r.cfg, r.logger.With("session", name))
	if err != nil {
		return nil, err
	}
	session.notify = func() { r.requestFlush() }
	r.sessions[name] = session
	return session, nil
}

// RemoveSession flushes and unregisters the log for the given session id.
func (r *Recorder) RemoveSession(id string) {
	name := sanitizeSession(id)

	r.mu.Lock()
	session, ok := r.sessions[name]
	if ok {
		delete(r.sessions, name)
	}
	r.mu.Unlock()

	if ok {
		if err := session.Close(); err != nil {
			r.logger.Error("round log flush on remove failed", "session", name, "error", err)
		}
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	ticker := r.cfg.Clock.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flushAll()
		case <-r.flushReq:
			r.flushAll()
		case <-r.stop:
			return
		}
	}
}

func (r *Recorder) requestFlush() {
	select {
	case r.flushReq <- struct{}{}:
	default:
	}
}

func (r *Recorder) flushAll() {
	r.mu.RLock()
	snapshot := make(map[string]*Session, len(r.sessions))
	for k, v := range r.sessions {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	for name, session := range snapshot {
		err := session.Flush()
		if err != nil {
			r.logger.Error("round log flush failed", "session", name, "error", err)
		}
		disabled, dropped := session.handleFlushResult(err)
		if disabled {
			r.logger.Error("round log recording disabled after repeated failures",
				"session", name, "dropped_entries", dropped)
			r.RemoveSession(name)
		}
	}
}

// sanitizeSession maps an arbitrary session id onto a safe directory
// name.
func sanitizeSession(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := b.String()
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
