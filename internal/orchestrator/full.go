package orchestrator

import (
	"context"
	"time"

	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/progress"
)

// RunFull does everything RunIncremental does — index, hearings, inline
// detail fill-in for anything newly touched, mark-past, alert matching —
// then three more backfill phases in order: detail, starting-price, and
// surface, each unbounded (0 means "every eligible row"). Progress
// exposes phase 1/5 through 5/5 via SetPhase.
func (o *Orchestrator) RunFull(ctx context.Context) error {
	return o.run(ctx, models.JobFullIndex, func(ctx context.Context, pw *progress.Writer, c *counters) error {
		pw.SetPhase("index", 1, 5)
		tribunals, err := o.index.Scrape(ctx, o.cfg.IndexPath)
		if err != nil {
			return err
		}
		c.pagesScraped++

		pw.SetPhase("hearings", 2, 5)
		touched, err := o.runHearingsPhase(ctx, pw, c, tribunals)
		if err != nil {
			return err
		}
		if err := o.fillMissingDetail(ctx, pw, c, touched); err != nil {
			return err
		}
		if _, err := o.store.MarkPastAuctions(time.Now()); err != nil {
			return err
		}
		if err := o.matchAlerts(touched); err != nil {
			return err
		}

		pw.SetPhase("detail_backfill", 3, 5)
		if err := o.runDetailPhase(ctx, pw, c, 0); err != nil {
			return err
		}

		pw.SetPhase("starting_price_backfill", 4, 5)
		if err := o.runStartingPricePhase(ctx, pw, c, 0); err != nil {
			return err
		}

		pw.SetPhase("surface_backfill", 5, 5)
		if err := o.runSurfacePhase(ctx, pw, c, 0); err != nil {
			return err
		}

		return nil
	})
}
