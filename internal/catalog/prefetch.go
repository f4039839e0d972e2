package catalog

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Listing names what a prefetch step fetched.
type Listing string

const (
	ListingCompilers Listing = "compilers"
	ListingLibraries Listing = "libraries"
)

// PrefetchEvent reports one finished prefetch step.
type PrefetchEvent struct {
	Language string
	Listing  Listing
	Err      error
}

// Prefetch warms the compiler and library listings of languages in parallel.
// jobs <= 0 means GOMAXPROCS.
func (c *Catalog) Prefetch(ctx context.Context, languages []string, jobs int) error {
	return c.PrefetchWithProgress(ctx, languages, jobs, nil)
}

// PrefetchWithProgress is Prefetch calling report after every step. report
// runs on the fetching goroutines.
func (c *Catalog) PrefetchWithProgress(ctx context.Context, languages []string, jobs int, report func(PrefetchEvent)) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if report == nil {
		report = func(PrefetchEvent) {}
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, lang := range languages {
		g.Go(func() error {
			_, err := c.Compilers(ctx, lang)
			report(PrefetchEvent{Language: lang, Listing: ListingCompilers, Err: err})
			if err != nil {
				return fmt.Errorf("prefetch compilers for %s: %w", lang, err)
			}
			return nil
		})
		g.Go(func() error {
			_, err := c.Libraries(ctx, lang)
			report(PrefetchEvent{Language: lang, Listing: ListingLibraries, Err: err})
			if err != nil {
				return fmt.Errorf("prefetch libraries for %s: %w", lang, err)
			}
			return nil
		})
	}
	return g.Wait()
}
