package precompute

import (
	"context"
	"sync"
	"time"

	cacheservice "slotkeeper/internal/availability/cache/service"
	calendarservice "slotkeeper/internal/calendar/service"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/config"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// PassResult summarizes one scheduled precompute pass.
type PassResult struct {
	Tenants   int
	Resources int
	Failed    int
	Days      int
	Published int
	Skipped   int
	Pruned    int64
	Duration  time.Duration
}

// Worker refreshes the availability cache for every resource with working
// hours, from now to the cache horizon.
type Worker struct {
	calendar calendarservice.CalendarService
	cache    cacheservice.CacheService
	cfg      *config.Config
	clock    clock.Clock
	limiter  *rate.Limiter
}

func NewWorker(calendar calendarservice.CalendarService, cache cacheservice.CacheService, cfg *config.Config, clk clock.Clock) *Worker {
	return &Worker{
		calendar: calendar,
		cache:    cache,
		cfg:      cfg,
		clock:    clk,
		limiter:  rate.NewLimiter(rate.Limit(cfg.PrecomputeRate), 1),
	}
}

// Run executes a pass immediately and then every PrecomputeInterval until
// ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PrecomputeInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunPass(ctx); err != nil && ctx.Err() == nil {
			w.cfg.Log.Error("Precompute pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type target struct {
	tenantID   string
	resourceID string
}

// RunPass precomputes every resource once. A failing resource is logged and
// counted; it does not stop the pass.
func (w *Worker) RunPass(ctx context.Context) (*PassResult, error) {
	started := w.clock.Now()
	from := started.UTC()
	to := from.AddDate(0, 0, w.cfg.CacheHorizonDays)

	tenants, err := w.calendar.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	var targets []target
	for _, tenantID := range tenants {
		resources, err := w.calendar.ListResources(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		for _, resourceID := range resources {
			targets = append(targets, target{tenantID: tenantID, resourceID: resourceID})
		}
	}

	result := &PassResult{Tenants: len(tenants), Resources: len(targets)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.PrecomputeConcurrency)
	for _, t := range targets {
		g.Go(func() error {
			if err := w.limiter.Wait(gctx); err != nil {
				return err
			}

			res, err := w.cache.Precompute(gctx, t.tenantID, t.resourceID, from, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				w.cfg.Log.Warn("Failed to precompute resource",
					"tenant_id", t.tenantID,
					"resource_id", t.resourceID,
					"error", err,
				)
				return nil
			}
			result.Days += res.Days
			result.Published += res.Published
			result.Skipped += res.Skipped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pruned, err := w.cache.Prune(ctx, from)
	if err != nil {
		w.cfg.Log.Warn("Failed to prune availability cache", "error", err)
	}
	result.Pruned = pruned
	result.Duration = w.clock.Now().Sub(started)

	w.cfg.Log.Info("Precompute pass finished",
		"tenants", result.Tenants,
		"resources", result.Resources,
		"failed", result.Failed,
		"days", result.Days,
		"published", result.Published,
		"skipped", result.Skipped,
		"pruned", result.Pruned,
		"duration", result.Duration,
	)
	return result, nil
}
