package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cexplorer/internal/api"
)

type fakeSource struct {
	calls   atomic.Int32
	fail    atomic.Bool
	release chan struct{}
}

func (f *fakeSource) BaseURL() string { return "https://ce.test" }

func (f *fakeSource) Languages(ctx context.Context) ([]api.Language, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.fail.Load() {
		return nil, errors.New("offline")
	}
	return []api.Language{{ID: "c++", Name: "C++"}, {ID: "c", Name: "C"}}, nil
}

func (f *fakeSource) Compilers(ctx context.Context, language string) ([]api.CompilerInfo, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("offline")
	}
	return []api.CompilerInfo{{ID: "g132", Name: "gcc 13.2", Language: language}}, nil
}

func (f *fakeSource) Libraries(ctx context.Context, language string) ([]api.Library, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("offline")
	}
	return []api.Library{{ID: "fmt", Name: "{fmt}", Versions: []api.LibraryVersion{{ID: "1000", Version: "10.0.0"}}}}, nil
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (n *fakeNow) now() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.t
}

func (n *fakeNow) add(d time.Duration) {
	n.mu.Lock()
	n.t = n.t.Add(d)
	n.mu.Unlock()
}

func TestMemoryCacheHonoursTTL(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	c := New(src, Options{TTL: time.Hour, Now: clock.now})
	ctx := context.Background()
	for range 3 {
		if _, err := c.Languages(ctx); err != nil {
			t.Fatalf("languages: %v", err)
		}
	}
	if src.calls.Load() != 1 {
		t.Fatalf("expected one fetch, got %d", src.calls.Load())
	}
	clock.add(2 * time.Hour)
	if _, err := c.Languages(ctx); err != nil {
		t.Fatalf("languages: %v", err)
	}
	if src.calls.Load() != 2 {
		t.Fatalf("expired listing should refetch, got %d calls", src.calls.Load())
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	c := New(src, Options{})
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Languages(context.Background())
			errs <- err
		}()
	}
	// let the goroutines pile up on the in-flight fetch
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("languages: %v", err)
		}
	}
	if n := src.calls.Load(); n < 1 || n > 8 {
		t.Fatalf("unexpected fetch count %d", n)
	}
}

func TestDiskCacheSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	disk, err := OpenDiskCache(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	src := &fakeSource{}
	if _, err := New(src, Options{Disk: disk}).Libraries(context.Background(), "c++"); err != nil {
		t.Fatalf("libraries: %v", err)
	}

	again := &fakeSource{}
	libs, err := New(again, Options{Disk: disk}).Libraries(context.Background(), "c++")
	if err != nil {
		t.Fatalf("libraries: %v", err)
	}
	if again.calls.Load() != 0 {
		t.Fatalf("second catalog should read from disk")
	}
	if len(libs) != 1 || libs[0].Versions[0].Version != "10.0.0" {
		t.Fatalf("unexpected libraries %+v", libs)
	}

	if err := disk.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := New(again, Options{Disk: disk}).Libraries(context.Background(), "c++"); err != nil {
		t.Fatalf("libraries: %v", err)
	}
	if again.calls.Load() != 1 {
		t.Fatalf("dropped cache should refetch")
	}
}

func TestFailedFetchServesStaleListing(t *testing.T) {
	src := &fakeSource{}
	clock := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	c := New(src, Options{TTL: time.Minute, Now: clock.now})
	ctx := context.Background()
	if _, err := c.Compilers(ctx, "c++"); err != nil {
		t.Fatalf("compilers: %v", err)
	}
	clock.add(time.Hour)
	src.fail.Store(true)
	comps, err := c.Compilers(ctx, "c++")
	if err != nil || len(comps) != 1 {
		t.Fatalf("expected stale listing, got %v %v", comps, err)
	}
	if _, err := c.Compilers(ctx, "rust"); err == nil {
		t.Fatalf("uncached listing must surface the failure")
	}
}

func TestFillFuncsProduceOptions(t *testing.T) {
	c := New(&fakeSource{}, Options{})
	ctx := context.Background()
	langs, err := c.LanguageFill()(ctx)
	if err != nil || len(langs) != 2 || langs[0].Key != "c++" || langs[0].Display != "C++" {
		t.Fatalf("language options: %v %+v", err, langs)
	}
	libs, err := c.LibraryFill("c++")(ctx)
	if err != nil || len(libs) != 1 || libs[0].Versions[0].ID != "1000" {
		t.Fatalf("library options: %v %+v", err, libs)
	}
}

func TestPrefetchWarmsListings(t *testing.T) {
	src := &fakeSource{}
	c := New(src, Options{})
	if err := c.Prefetch(context.Background(), []string{"c++", "c", "rust"}, 2); err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	before := src.calls.Load()
	if _, err := c.Compilers(context.Background(), "rust"); err != nil {
		t.Fatalf("compilers: %v", err)
	}
	if src.calls.Load() != before {
		t.Fatalf("prefetched listing should be cached")
	}
	var mu sync.Mutex
	var steps []PrefetchEvent
	err := New(&fakeSource{}, Options{}).PrefetchWithProgress(context.Background(), []string{"c", "go"}, 1, func(e PrefetchEvent) {
		mu.Lock()
		steps = append(steps, e)
		mu.Unlock()
	})
	if err != nil || len(steps) != 4 {
		t.Fatalf("expected 4 reported steps, got %d (%v)", len(steps), err)
	}
	src.fail.Store(true)
	if err := New(src, Options{}).Prefetch(context.Background(), []string{"go"}, 0); err == nil {
		t.Fatalf("expected prefetch failure")
	}
}
