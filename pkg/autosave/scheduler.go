// Package autosave debounces document changes into calls to a persistence backend.
package autosave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"notefiber-editor/pkg/document"
)

const moduleName = "AUTOSAVE"

// DefaultDelay is how long the document must stay unchanged before it is saved.
const DefaultDelay = 2 * time.Second

var (
	ErrNotSavable = errors.New("autosave: title and slug are required")
	ErrClosed     = errors.New("autosave: scheduler closed")
)

// Metadata travels with the content on every save.
type Metadata struct {
	Title string                 `json:"title"`
	Slug  string                 `json:"slug"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Persister stores a document.
type Persister interface {
	Save(ctx context.Context, content []document.Node, meta Metadata) error
}

type PersisterFunc func(ctx context.Context, content []document.Node, meta Metadata) error

func (f PersisterFunc) Save(ctx context.Context, content []document.Node, meta Metadata) error {
	return f(ctx, content, meta)
}

// State is what a save indicator shows.
type State struct {
	IsSaving  bool       `json:"isSaving"`
	Dirty     bool       `json:"dirty"`
	LastSaved *time.Time `json:"lastSaved,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, string, map[string]interface{}) {}
func (nopLogger) Warn(string, string, map[string]interface{}) {}

// Scheduler saves the latest content once changes settle for the configured delay.
// At most one save runs at a time; changes arriving during a save re-arm the timer
// once it completes.
type Scheduler struct {
	persister Persister
	delay     time.Duration
	logger    Logger
	validate  func(Metadata) error
	listeners []func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	enabled bool
	closed  bool
	timer   *time.Timer
	gen     uint64
	content []document.Node
	meta    Metadata
	dirty   bool
	saving  bool
	done    chan struct{} // closed when the in-flight save finishes
	rearm   bool
	state   State
}

type Option func(*Scheduler)

func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.delay = d }
}

func WithLogger(l Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithEnabled(enabled bool) Option {
	return func(s *Scheduler) { s.enabled = enabled }
}

// WithValidator replaces the check deciding whether metadata is complete enough to save.
func WithValidator(fn func(Metadata) error) Option {
	return func(s *Scheduler) { s.validate = fn }
}

// WithStateListener registers fn to receive every state change.
func WithStateListener(fn func(State)) Option {
	return func(s *Scheduler) { s.listeners = append(s.listeners, fn) }
}

// WithBaseline seeds the last known content and metadata, so a SaveNow before any
// change writes them back. The scheduler starts clean.
func WithBaseline(content []document.Node, meta Metadata) Option {
	return func(s *Scheduler) {
		s.content = document.CloneNodes(content)
		s.meta = meta
	}
}

func NewScheduler(p Persister, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		persister: p,
		delay:     DefaultDelay,
		logger:    nopLogger{},
		validate:  RequireTitleAndSlug,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequireTitleAndSlug is the default savable check.
func RequireTitleAndSlug(m Metadata) error {
	if strings.TrimSpace(m.Title) == "" || strings.TrimSpace(m.Slug) == "" {
		return ErrNotSavable
	}
	return nil
}

// State returns the current save state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scheduler) stateLocked() State {
	st := s.state
	st.Dirty = s.dirty
	if st.LastSaved != nil {
		t := *st.LastSaved
		st.LastSaved = &t
	}
	return st
}

// Notify records new content and metadata and re-arms the timer.
func (s *Scheduler) Notify(content []document.Node, meta Metadata) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.content = document.CloneNodes(content)
	s.meta = meta
	s.dirty = true

	switch {
	case !s.enabled:
	case s.saving:
		s.rearm = true
	default:
		s.armLocked()
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.emit(st)
}

// SetEnabled turns debounced saving on or off. Pending changes are scheduled when
// saving is switched back on.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.enabled == enabled {
		return
	}
	s.enabled = enabled
	if !enabled {
		s.stopLocked()
		return
	}
	if s.dirty && !s.saving {
		s.armLocked()
	}
}

func (s *Scheduler) armLocked() {
	s.stopLocked()
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// stopLocked cancels the timer. Bumping gen makes a callback that already fired a no-op.
func (s *Scheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed || s.saving || !s.dirty {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if err := s.validate(s.meta); err != nil {
		s.mu.Unlock()
		s.logger.Info(moduleName, "Skipping autosave", map[string]interface{}{"reason": err.Error()})
		return
	}
	content, meta := s.beginLocked()
	st := s.stateLocked()
	s.mu.Unlock()

	s.emit(st)
	err := s.persister.Save(s.ctx, content, meta)
	s.finish(err)
}

// beginLocked marks a save as in flight and returns what it should write.
func (s *Scheduler) beginLocked() ([]document.Node, Metadata) {
	s.saving = true
	s.dirty = false
	s.done = make(chan struct{})
	s.state.IsSaving = true
	return document.CloneNodes(s.content), s.meta
}

func (s *Scheduler) finish(err error) {
	s.mu.Lock()
	s.saving = false
	close(s.done)
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.state.IsSaving = false
	if err != nil {
		s.dirty = true
		s.state.Error = err.Error()
		s.logger.Warn(moduleName, "Autosave failed", map[string]interface{}{"error": err.Error()})
	} else {
		now := time.Now()
		s.state.LastSaved = &now
		s.state.Error = ""
	}
	if s.rearm {
		s.rearm = false
		if s.dirty && s.enabled {
			s.armLocked()
		}
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.emit(st)
}

// SaveNow saves the latest content immediately, cancelling any pending timer. If a
// save is already running it waits for it first so saves never overlap.
func (s *Scheduler) SaveNow(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if !s.saving {
			break
		}
		done := s.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.stopLocked()
	s.rearm = false
	if err := s.validate(s.meta); err != nil {
		s.mu.Unlock()
		return err
	}
	content, meta := s.beginLocked()
	st := s.stateLocked()
	s.mu.Unlock()

	s.emit(st)
	err := s.persister.Save(ctx, content, meta)
	s.finish(err)
	return err
}

// Flush saves pending changes, if any. It is the best-effort final save before Close.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if !dirty {
		return nil
	}
	return s.SaveNow(ctx)
}

// Close stops the timer and cancels an in-flight save without waiting for it. No
// state is reported after Close.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()

	s.cancel()
}

func (s *Scheduler) emit(st State) {
	for _, fn := range s.listeners {
		fn(st)
	}
}
