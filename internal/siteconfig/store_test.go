package siteconfig

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newTestStore returns a Store with caching disabled so every call reaches the backend.
func newTestStore(t *testing.T, b Backend, opts Options) *Store {
	t.Helper()
	if opts.CacheTTL == 0 {
		opts.CacheTTL = -1
	}
	return NewStore(b, opts)
}

type fakeRecorder struct {
	mu    sync.Mutex
	ops   map[string]int
	errs  int
	seeds int
}

func (r *fakeRecorder) ObserveOperation(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = map[string]int{}
	}
	r.ops[op]++
	if err != nil {
		r.errs++
	}
}

func (r *fakeRecorder) IncSeed() {
	r.mu.Lock()
	r.seeds++
	r.mu.Unlock()
}

type fakeNotifier struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (n *fakeNotifier) Notify(_ context.Context, c Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return n.err
}

// blockingBackend never answers until the context is done.
type blockingBackend struct{}

func (blockingBackend) Read(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingBackend) Write(ctx context.Context, _ []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingBackend) Name() string { return "blocking" }

func TestStoreLoadSeedsDefault(t *testing.T) {
	backend := NewMemoryBackend(nil)
	rec := &fakeRecorder{}
	store := newTestStore(t, backend, Options{Metrics: rec})

	cfg, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() = %+v, want Default()", cfg)
	}
	if backend.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1 (seed persisted)", backend.Writes())
	}
	if rec.seeds != 1 {
		t.Errorf("seeds = %d, want 1", rec.seeds)
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if backend.Writes() != 1 {
		t.Errorf("second Load re-seeded: Writes() = %d", backend.Writes())
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend(nil), Options{})
	ctx := context.Background()

	lat := 13.7
	doc := &Patch{
		HeroTitle:   strPtr("Shop"),
		Latitude:    &lat,
		Topics:      []Topic{{ID: "a", Title: "A"}},
		HomeGallery: []string{"/1.png"},
	}
	saved, err := store.Save(ctx, doc)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, Normalize(doc)) {
		t.Errorf("Load() = %+v, want Normalize(doc)", loaded)
	}
	if !reflect.DeepEqual(saved, loaded) {
		t.Error("Save() result differs from next Load()")
	}
}

func TestStoreSavePartialPreservesOtherFields(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend(nil), Options{})
	ctx := context.Background()

	if _, err := store.Save(ctx, &Patch{Phone: strPtr("02"), HomeGallery: []string{"/a.png"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.SavePartial(ctx, &Patch{Theme: &Theme{Primary: "#000000"}})
	if err != nil {
		t.Fatalf("SavePartial() error = %v", err)
	}

	if got.Phone != "02" || !reflect.DeepEqual(got.HomeGallery, []string{"/a.png"}) {
		t.Errorf("unrelated fields changed: %+v", got)
	}
	want := DefaultTheme
	want.Primary = "#000000"
	if got.Theme != want {
		t.Errorf("Theme = %+v, want %+v", got.Theme, want)
	}
}

func TestStoreConcurrentPartialSaves(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend(nil), Options{})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var p Patch
			if i%2 == 0 {
				p.Phone = strPtr(fmt.Sprintf("phone-%d", i))
			} else {
				p.HeroTitle = strPtr(fmt.Sprintf("title-%d", i))
			}
			if _, err := store.SavePartial(ctx, &p); err != nil {
				t.Errorf("SavePartial() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	cfg, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Phone == "" || cfg.HeroTitle == DefaultHeroTitle {
		t.Errorf("a concurrent update was lost: phone=%q title=%q", cfg.Phone, cfg.HeroTitle)
	}
}

func TestStoreConcurrentUpdatesAllApplied(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend(nil), Options{})
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Update(ctx, func(cfg *SiteConfig) error {
				cfg.HomeGallery = AppendURLs(cfg.HomeGallery, fmt.Sprintf("/%d.png", i))
				return nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	cfg, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.HomeGallery) != n {
		t.Errorf("len(HomeGallery) = %d, want %d", len(cfg.HomeGallery), n)
	}
}

func TestStoreUpdateErrorWritesNothing(t *testing.T) {
	backend := NewMemoryBackend([]byte(`{}`))
	store := newTestStore(t, backend, Options{})

	_, err := store.Update(context.Background(), func(cfg *SiteConfig) error {
		cfg.HeroTitle = "never stored"
		return ErrTopicNotFound
	})
	if !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("Update() error = %v, want ErrTopicNotFound", err)
	}
	if backend.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", backend.Writes())
	}
}

func TestStoreSaveIfMatch(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend(nil), Options{})
	ctx := context.Background()

	cfg, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rev := Revision(cfg)

	if _, err := store.SaveIfMatch(ctx, &Patch{HeroTitle: strPtr("one")}, rev); err != nil {
		t.Fatalf("SaveIfMatch() with current revision error = %v", err)
	}
	_, err = store.SaveIfMatch(ctx, &Patch{HeroTitle: strPtr("two")}, rev)
	if !errors.Is(err, ErrRevisionMismatch) {
		t.Errorf("SaveIfMatch() with stale revision error = %v, want ErrRevisionMismatch", err)
	}
}

func TestStoreStorageErrors(t *testing.T) {
	backend := NewMemoryBackend([]byte(`{}`))
	backend.ReadErr = errors.New("disk gone")
	store := newTestStore(t, backend, Options{})

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Load() error = %v, want ErrStorageUnavailable", err)
	}

	backend.ReadErr = nil
	backend.WriteErr = errors.New("read-only")
	if _, err := store.SavePartial(context.Background(), &Patch{}); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("SavePartial() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestStoreTimeout(t *testing.T) {
	store := newTestStore(t, blockingBackend{}, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Load() error = %v, want ErrStorageUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Load() error = %v, want wrapped DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Load() did not honour the timeout")
	}
}

func TestStoreCorruptDocument(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend([]byte(`[1,2,3]`)), Options{})
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrCorruptDocument) {
		t.Errorf("Load() error = %v, want ErrCorruptDocument", err)
	}
}

func TestStoreCache(t *testing.T) {
	backend := NewMemoryBackend([]byte(`{"heroTitle":"cached"}`))
	store := NewStore(backend, Options{CacheTTL: time.Hour})
	ctx := context.Background()

	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := backend.Write(ctx, []byte(`{"heroTitle":"edited by hand"}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	cfg, _ := store.Load(ctx)
	if cfg.HeroTitle != "cached" {
		t.Errorf("HeroTitle = %q, want cached value", cfg.HeroTitle)
	}

	store.Invalidate()
	cfg, _ = store.Load(ctx)
	if cfg.HeroTitle != "edited by hand" {
		t.Errorf("HeroTitle after Invalidate = %q", cfg.HeroTitle)
	}

	cfg.HeroTitle = "mutated by caller"
	again, _ := store.Load(ctx)
	if again.HeroTitle != "edited by hand" {
		t.Error("Load() returned a value sharing memory with the cache")
	}
}

// pausingBackend holds its first Read after fetching the bytes until release
// is closed.
type pausingBackend struct {
	*MemoryBackend
	paused  atomic.Bool
	fetched chan struct{}
	release chan struct{}
}

func (p *pausingBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := p.MemoryBackend.Read(ctx)
	if p.paused.CompareAndSwap(false, true) {
		close(p.fetched)
		<-p.release
	}
	return data, err
}

func TestStoreSlowReadDoesNotOverwriteNewerWrite(t *testing.T) {
	backend := &pausingBackend{
		MemoryBackend: NewMemoryBackend([]byte(`{"heroTitle":"old"}`)),
		fetched:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	store := NewStore(backend, Options{CacheTTL: time.Hour})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx)
		done <- err
	}()
	<-backend.fetched

	if _, err := store.SavePartial(ctx, &Patch{HeroTitle: strPtr("new")}); err != nil {
		t.Fatalf("SavePartial() error = %v", err)
	}
	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HeroTitle != "new" {
		t.Errorf("HeroTitle = %q after save, want new", cfg.HeroTitle)
	}
}

func TestStoreInvalidateDuringReadSkipsCache(t *testing.T) {
	backend := &pausingBackend{
		MemoryBackend: NewMemoryBackend([]byte(`{"heroTitle":"old"}`)),
		fetched:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	store := NewStore(backend, Options{CacheTTL: time.Hour})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx)
		done <- err
	}()
	<-backend.fetched

	if err := backend.MemoryBackend.Write(ctx, []byte(`{"heroTitle":"edited by hand"}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	store.Invalidate()
	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg, _ := store.Load(ctx)
	if cfg.HeroTitle != "edited by hand" {
		t.Errorf("HeroTitle = %q, stale read was cached", cfg.HeroTitle)
	}
}

func TestStoreWritesBypassCache(t *testing.T) {
	backend := NewMemoryBackend([]byte(`{"phone":"1"}`))
	store := NewStore(backend, Options{CacheTTL: time.Hour})
	ctx := context.Background()

	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_ = backend.Write(ctx, []byte(`{"phone":"2"}`))

	got, err := store.SavePartial(ctx, &Patch{HeroTitle: strPtr("x")})
	if err != nil {
		t.Fatalf("SavePartial() error = %v", err)
	}
	if got.Phone != "2" {
		t.Errorf("Phone = %q, write merged onto a stale cached copy", got.Phone)
	}
}

func TestStoreNotifier(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("broker down")}
	store := newTestStore(t, NewMemoryBackend([]byte(`{}`)), Options{Notifier: notifier})

	cfg, err := store.SavePartial(context.Background(), &Patch{HeroTitle: strPtr("new")})
	if err != nil {
		t.Fatalf("SavePartial() error = %v, notifier failures must not propagate", err)
	}

	if len(notifier.changes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.changes))
	}
	c := notifier.changes[0]
	if !reflect.DeepEqual(c.Fields, []string{"heroTitle"}) {
		t.Errorf("Fields = %v, want [heroTitle]", c.Fields)
	}
	if c.Revision != Revision(cfg) {
		t.Errorf("Revision = %q, want %q", c.Revision, Revision(cfg))
	}

	if _, err := store.SavePartial(context.Background(), &Patch{HeroTitle: strPtr("new")}); err != nil {
		t.Fatalf("SavePartial() error = %v", err)
	}
	if len(notifier.changes) != 1 {
		t.Error("no-op write should not notify")
	}
}

func TestStorePersistsIndentedJSON(t *testing.T) {
	backend := NewMemoryBackend(nil)
	store := newTestStore(t, backend, Options{})
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	data := string(backend.Bytes())
	if len(data) < 4 || data[:4] != "{\n  " {
		t.Errorf("stored bytes not indented: %.20q", data)
	}
}
