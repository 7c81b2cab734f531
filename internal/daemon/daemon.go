// Package daemon keeps the process alive and re-invokes one orchestrator
// workflow on a cron schedule, so an operator can run `scraper daemon`
// instead of wiring up an external cron(1) entry. It reuses the same
// Orchestrator methods a one-shot CLI invocation would call; run
// semantics and cancellation are identical either way.
package daemon

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/encheres-immo/scraper/internal/orchestrator"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
)

// Job names accepted by --job. They match the CLI subcommand names, except
// detail-backfill, which the CLI runs as `backfill`.
const (
	JobIncremental     = "incremental"
	JobFull            = "full"
	JobHistory         = "history"
	JobDetailBackfill  = "detail-backfill"
	JobMapBackfill     = "map-backfill"
	JobSurfaceBackfill = "surface-backfill"
)

// Daemon wraps a gocron.Scheduler that fires a single named workflow on
// a cron schedule until Stop is called.
type Daemon struct {
	scheduler *gocron.Scheduler
	orch      *orchestrator.Orchestrator
}

func New(orch *orchestrator.Orchestrator) *Daemon {
	return &Daemon{
		scheduler: gocron.NewScheduler(time.UTC),
		orch:      orch,
	}
}

// Start schedules job to run on cronExpr and blocks until ctx is
// cancelled. One fixed job per daemon; there is no dynamic registry.
func (d *Daemon) Start(ctx context.Context, cronExpr, job string) error {
	_, err := d.scheduler.Cron(cronExpr).Do(func() {
		switch err := d.runOnce(ctx, job); {
		case err == nil:
		case errors.Is(err, scrapeerr.ErrCancelled):
			log.Printf("daemon: %s run cancelled by operator", job)
		default:
			log.Printf("daemon: %s run failed: %v", job, err)
		}
	})
	if err != nil {
		return err
	}

	d.scheduler.StartAsync()
	<-ctx.Done()
	d.scheduler.Stop()
	return nil
}

func (d *Daemon) runOnce(ctx context.Context, job string) error {
	log.Printf("daemon: firing %s", job)
	switch job {
	case JobIncremental:
		return d.orch.RunIncremental(ctx)
	case JobFull:
		return d.orch.RunFull(ctx)
	case JobHistory:
		return d.orch.RunHistoryBackfill(ctx, nil, 0)
	case JobDetailBackfill:
		return d.orch.RunDetailBackfill(ctx, 0)
	case JobMapBackfill:
		return d.orch.RunStartingPriceBackfill(ctx, 0)
	case JobSurfaceBackfill:
		return d.orch.RunSurfaceBackfill(ctx, 0)
	default:
		log.Printf("daemon: unknown job %q, skipping this fire", job)
		return nil
	}
}
