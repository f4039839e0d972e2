// Package catalog serves the language, compiler and library listings that
// populate selection aspects. Listings are cached in memory and, optionally,
// on disk; concurrent requests for the same listing share one fetch.
package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cexplorer/internal/api"
)

// DefaultTTL is how long a listing is served without refetching.
const DefaultTTL = 24 * time.Hour

// Source fetches listings from the service. *api.Client satisfies it.
type Source interface {
	BaseURL() string
	Languages(ctx context.Context) ([]api.Language, error)
	Compilers(ctx context.Context, language string) ([]api.CompilerInfo, error)
	Libraries(ctx context.Context, language string) ([]api.Library, error)
}

// Options configures a Catalog.
type Options struct {
	TTL    time.Duration
	Disk   *DiskCache
	Logger *zap.Logger
	Now    func() time.Time
}

// Catalog is safe for concurrent use.
type Catalog struct {
	src  Source
	disk *DiskCache
	ttl  time.Duration
	log  *zap.Logger
	now  func() time.Time

	mu    sync.Mutex
	mem   map[string]*payload
	group singleflight.Group
}

func New(src Source, opts Options) *Catalog {
	c := &Catalog{
		src:  src,
		disk: opts.Disk,
		ttl:  opts.TTL,
		log:  opts.Logger,
		now:  opts.Now,
		mem:  make(map[string]*payload),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Languages returns the language listing.
func (c *Catalog) Languages(ctx context.Context) ([]api.Language, error) {
	p, err := c.load(ctx, "languages", func(ctx context.Context, p *payload) error {
		langs, err := c.src.Languages(ctx)
		p.Languages = langs
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.Languages, nil
}

// Compilers returns the compilers for language.
func (c *Catalog) Compilers(ctx context.Context, language string) ([]api.CompilerInfo, error) {
	p, err := c.load(ctx, "compilers/"+language, func(ctx context.Context, p *payload) error {
		comps, err := c.src.Compilers(ctx, language)
		p.Compilers = comps
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.Compilers, nil
}

// Libraries returns the libraries for language.
func (c *Catalog) Libraries(ctx context.Context, language string) ([]api.Library, error) {
	p, err := c.load(ctx, "libraries/"+language, func(ctx context.Context, p *payload) error {
		libs, err := c.src.Libraries(ctx, language)
		p.Libraries = libs
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.Libraries, nil
}

// Invalidate forgets every cached listing, in memory and on disk.
func (c *Catalog) Invalidate() error {
	c.mu.Lock()
	c.mem = make(map[string]*payload)
	c.mu.Unlock()
	return c.disk.DropAll()
}

func (c *Catalog) fresh(p *payload) bool {
	return p != nil && c.now().Sub(p.FetchedAt) < c.ttl
}

// load serves key from memory, then disk, then the service. When the fetch
// fails a stale copy is served if one exists.
func (c *Catalog) load(ctx context.Context, key string, fetch func(context.Context, *payload) error) (*payload, error) {
	c.mu.Lock()
	cached := c.mem[key]
	c.mu.Unlock()
	if c.fresh(cached) {
		return cached, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		return c.fill(ctx, key, cached, fetch)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*payload), nil
	}
}

func (c *Catalog) fill(ctx context.Context, key string, stale *payload, fetch func(context.Context, *payload) error) (*payload, error) {
	base := c.src.BaseURL()
	log := c.log.With(zap.String("listing", key))

	onDisk, ok, err := c.disk.get(base, key)
	if err != nil {
		log.Warn("disk cache unreadable", zap.Error(err))
	}
	if ok {
		if c.fresh(onDisk) {
			c.remember(key, onDisk)
			log.Debug("served from disk cache")
			return onDisk, nil
		}
		stale = onDisk
	}

	p := &payload{BaseURL: base, Key: key, FetchedAt: c.now()}
	if err := fetch(ctx, p); err != nil {
		if stale != nil {
			log.Warn("fetch failed, serving stale listing", zap.Error(err), zap.Time("fetched_at", stale.FetchedAt))
			return stale, nil
		}
		return nil, err
	}
	c.remember(key, p)
	if err := c.disk.put(p); err != nil {
		log.Warn("disk cache write failed", zap.Error(err))
	}
	return p, nil
}

func (c *Catalog) remember(key string, p *payload) {
	c.mu.Lock()
	c.mem[key] = p
	c.mu.Unlock()
}
