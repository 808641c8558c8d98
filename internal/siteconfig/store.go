package siteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Default store tuning.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 2 * time.Second
)

// Logger defines the logging interface used by the Store.
// It is satisfied by *slog.Logger and the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives store instrumentation.
type Recorder interface {
	// ObserveOperation records one backend call ("read" or "write").
	ObserveOperation(op string, d time.Duration, err error)

	// IncSeed counts first-read seeding of the default document.
	IncSeed()
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, time.Duration, error) {}
func (noopRecorder) IncSeed()                                      {}

// Change describes a successful write.
type Change struct {
	Revision string    `json:"revision"`
	Fields   []string  `json:"fields"`
	At       time.Time `json:"at"`
}

// Notifier is told about every successful write.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	// Timeout bounds each backend call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// CacheTTL is how long a loaded document is served without re-reading the
	// backend. Zero selects DefaultCacheTTL; a negative value disables caching.
	CacheTTL time.Duration

	Logger   Logger
	Metrics  Recorder
	Notifier Notifier
}

// Store is the read-modify-write layer over one Backend.
//
// Every write path (Save, SavePartial, SaveIfMatch, Update) holds writeMu for
// the full load-merge-persist cycle.
type Store struct {
	backend  Backend
	timeout  time.Duration
	cacheTTL time.Duration
	logger   Logger
	metrics  Recorder
	notifier Notifier
	now      func() time.Time

	writeMu sync.Mutex

	// gen counts writes and invalidations. A read only fills the cache if gen
	// has not moved since the read began.
	cacheMu  sync.RWMutex
	cached   *SiteConfig
	cachedAt time.Time
	gen      uint64
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts Options) *Store {
	s := &Store{
		backend:  backend,
		timeout:  opts.Timeout,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		now:      time.Now,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.cacheTTL == 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	return s
}

// Backend returns the backend name.
func (s *Store) Backend() string { return s.backend.Name() }

// Load returns the current normalised document.
//
// When nothing is stored yet the default document is persisted and returned.
// The returned value is a private copy; callers may modify it.
func (s *Store) Load(ctx context.Context) (*SiteConfig, error) {
	cfg, gen := s.fromCache()
	if cfg != nil {
		return cfg, nil
	}

	cfg, err := s.read(ctx)
	if errors.Is(err, ErrNoDocument) {
		return s.seed(ctx)
	}
	if err != nil {
		return nil, err
	}
	s.fillCache(cfg, gen)
	return cfg.Clone(), nil
}

// Save normalises doc and persists it wholesale.
func (s *Store) Save(ctx context.Context, doc *Patch) (*SiteConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	before, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, before, Normalize(doc))
}

// SavePartial merges patch onto the stored document and persists the result.
// Fields absent from patch keep their stored values.
func (s *Store) SavePartial(ctx context.Context, patch *Patch) (*SiteConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, current, Merge(current, patch))
}

// SaveIfMatch replaces the document only if the stored revision is revision.
func (s *Store) SaveIfMatch(ctx context.Context, doc *Patch, revision string) (*SiteConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if got := Revision(current); got != revision {
		return nil, fmt.Errorf("%w: stored %s, expected %s", ErrRevisionMismatch, got, revision)
	}
	return s.persist(ctx, current, Normalize(doc))
}

// Update runs fn on a copy of the stored document and persists the result.
// If fn returns an error nothing is written and the error is returned as is.
func (s *Store) Update(ctx context.Context, fn func(*SiteConfig) error) (*SiteConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	return s.persist(ctx, current, Normalize(next.Patch()))
}

// Invalidate drops the read cache so the next Load reads the backend.
func (s *Store) Invalidate() {
	s.cacheMu.Lock()
	s.cached = nil
	s.gen++
	s.cacheMu.Unlock()
}

// loadLocked reads the freshest document for a write. The cache is bypassed so
// an edit made outside this process is never overwritten by a stale copy.
// Callers must hold writeMu.
func (s *Store) loadLocked(ctx context.Context) (*SiteConfig, error) {
	cfg, err := s.read(ctx)
	if errors.Is(err, ErrNoDocument) {
		return Default(), nil
	}
	return cfg, err
}

// seed persists the default document on first read. Another writer may have
// stored a document since the failed read, so the backend is checked again
// under writeMu.
func (s *Store) seed(ctx context.Context) (*SiteConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, gen := s.fromCache()
	cfg, err := s.read(ctx)
	if err == nil {
		s.fillCache(cfg, gen)
		return cfg.Clone(), nil
	}
	if !errors.Is(err, ErrNoDocument) {
		return nil, err
	}

	s.metrics.IncSeed()
	s.logger.Info("seeding default site config", "backend", s.backend.Name())
	return s.persist(ctx, nil, Default())
}

func (s *Store) read(ctx context.Context) (*SiteConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNoDocument) {
		s.metrics.ObserveOperation("read", time.Since(start), nil)
		return nil, ErrNoDocument
	}
	s.metrics.ObserveOperation("read", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s backend: %w", ErrStorageUnavailable, s.backend.Name(), err)
	}

	raw, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

// persist writes next and refreshes the cache. before is used only to report
// which fields changed.
func (s *Store) persist(ctx context.Context, before, next *SiteConfig) (*SiteConfig, error) {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding site config: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err = s.backend.Write(wctx, data)
	s.metrics.ObserveOperation("write", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: writing %s backend: %w", ErrStorageUnavailable, s.backend.Name(), err)
	}

	s.storeCache(next)
	s.notify(ctx, before, next)
	return next.Clone(), nil
}

func (s *Store) notify(ctx context.Context, before, after *SiteConfig) {
	if s.notifier == nil {
		return
	}
	fields := ChangedFields(before, after)
	if len(fields) == 0 {
		return
	}
	change := Change{Revision: Revision(after), Fields: fields, At: s.now().UTC()}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.notifier.Notify(nctx, change); err != nil {
		s.logger.Warn("site config change notification failed", "error", err, "revision", change.Revision)
	}
}

// fromCache returns a fresh cached copy, or nil, along with the current
// write generation.
func (s *Store) fromCache() (*SiteConfig, uint64) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if s.cacheTTL < 0 || s.cached == nil || s.now().Sub(s.cachedAt) >= s.cacheTTL {
		return nil, s.gen
	}
	return s.cached.Clone(), s.gen
}

// fillCache caches cfg read at generation gen, unless a write or an
// invalidation has happened since.
func (s *Store) fillCache(cfg *SiteConfig, gen uint64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheTTL < 0 || s.gen != gen {
		return
	}
	s.cached = cfg.Clone()
	s.cachedAt = s.now()
}

// storeCache caches a document that was just written.
func (s *Store) storeCache(cfg *SiteConfig) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gen++
	if s.cacheTTL < 0 {
		return
	}
	s.cached = cfg.Clone()
	s.cachedAt = s.now()
}
