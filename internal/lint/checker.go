package lint

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/positivef/verifycache"
)

// Outcome is the result of checking one file.
type Outcome struct {
	Result verifycache.Result
	Cached bool
}

// Checker answers verification requests from a cache, falling back to a
// Verifier on a miss.
//
// Concurrent Check calls for the same path share a single Verify call.
// Results carrying an error are returned but never cached, so a missing
// linter or a crash is retried next time.
type Checker struct {
	cache    *verifycache.Cache
	verifier Verifier
	workers  int
	logger   *slog.Logger

	inflight singleflight.Group
}

// NewChecker creates a Checker. cache may be nil to disable caching.
// workers bounds the parallelism of CheckAll; values below 1 mean 1.
func NewChecker(cache *verifycache.Cache, verifier Verifier, workers int, logger *slog.Logger) *Checker {
	if workers < 1 {
		workers = 1
	}
	return &Checker{
		cache:    cache,
		verifier: verifier,
		workers:  workers,
		logger:   logger,
	}
}

// Check verifies path, using the cached result if the file is unchanged.
func (c *Checker) Check(ctx context.Context, path string, mode verifycache.Mode) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if c.cache != nil {
		if result, ok := c.cache.Get(path); ok {
			c.log().Debug("lint cache hit", "path", path)
			return Outcome{Result: result, Cached: true}, nil
		}
	}

	v, _, _ := c.inflight.Do(path, func() (any, error) {
		result := c.verifier.Verify(ctx, path, mode)
		if result.Error == nil && c.cache != nil {
			if !c.cache.Put(path, result, mode) {
				c.log().Debug("lint result not cached", "path", path)
			}
		}
		return result, nil
	})
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	result, _ := v.(verifycache.Result) //nolint:errcheck // Do only ever returns a Result
	return Outcome{Result: result}, nil
}

// CheckAll verifies every path and returns the outcomes in input order.
// The first context error aborts the remaining work.
func (c *Checker) CheckAll(ctx context.Context, paths []string, mode verifycache.Mode) ([]Outcome, error) {
	outcomes := make([]Outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, path := range paths {
		g.Go(func() error {
			outcome, err := c.Check(gctx, path, mode)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (c *Checker) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}
