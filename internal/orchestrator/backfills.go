package orchestrator

import (
	"context"
	"errors"

	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/progress"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
)

// RunDetailBackfill visits up to limit listings that have never had
// their detail page scraped and fills in every field from it.
func (o *Orchestrator) RunDetailBackfill(ctx context.Context, limit int) error {
	return o.run(ctx, models.JobDetailBackfill, func(ctx context.Context, pw *progress.Writer, c *counters) error {
		return o.runDetailPhase(ctx, pw, c, limit)
	})
}

func (o *Orchestrator) runDetailPhase(ctx context.Context, pw *progress.Writer, c *counters, limit int) error {
	refs, err := o.store.GetListingsWithoutDetail(limit)
	if err != nil {
		return err
	}
	pw.AddTotal(len(refs))

	var touched []int
	for _, ref := range refs {
		if err := o.checkCancelled(); err != nil {
			return err
		}

		detail, err := o.detail.Scrape(ctx, ref.URLPath)
		c.pagesScraped++
		if err != nil {
			c.errorsCount++
			_ = pw.Tick(false, true, false, ref.URLPath)
			continue
		}

		if err := o.store.UpdateListingDetail(detail); err != nil {
			c.errorsCount++
			_ = pw.Tick(false, true, false, ref.URLPath)
			continue
		}
		touched = append(touched, ref.LicitorID)
		c.listingsUpdated++
		if err := pw.Tick(true, false, false, ref.URLPath); err != nil {
			return err
		}
	}

	return o.matchAlerts(touched)
}

// RunStartingPriceBackfill visits up to limit listings with no recorded
// mise-a-prix and fills it in from a lightweight single-field fetch.
func (o *Orchestrator) RunStartingPriceBackfill(ctx context.Context, limit int) error {
	return o.run(ctx, models.JobMapBackfill, func(ctx context.Context, pw *progress.Writer, c *counters) error {
		return o.runStartingPricePhase(ctx, pw, c, limit)
	})
}

func (o *Orchestrator) runStartingPricePhase(ctx context.Context, pw *progress.Writer, c *counters, limit int) error {
	refs, err := o.store.GetListingsWithoutStartingPrice(limit)
	if err != nil {
		return err
	}
	pw.AddTotal(len(refs))

	for _, ref := range refs {
		if err := o.checkCancelled(); err != nil {
			return err
		}

		price, err := o.detail.ScrapeMiseAPrix(ctx, ref.URLPath)
		c.pagesScraped++
		if err != nil {
			var missing *scrapeerr.MissingField
			if errors.As(err, &missing) {
				_ = pw.Tick(false, false, true, ref.URLPath)
			} else {
				c.errorsCount++
				_ = pw.Tick(false, true, false, ref.URLPath)
			}
			continue
		}
		if err := o.store.UpdateListingMiseAPrix(ref.LicitorID, price); err != nil {
			c.errorsCount++
			_ = pw.Tick(false, true, false, ref.URLPath)
			continue
		}
		c.listingsUpdated++
		if err := pw.Tick(true, false, false, ref.URLPath); err != nil {
			return err
		}
	}
	return nil
}

// RunSurfaceBackfill visits up to limit listings with no recorded
// surface area and fills it in from a lightweight single-field fetch.
func (o *Orchestrator) RunSurfaceBackfill(ctx context.Context, limit int) error {
	return o.run(ctx, models.JobSurfaceBackfill, func(ctx context.Context, pw *progress.Writer, c *counters) error {
		return o.runSurfacePhase(ctx, pw, c, limit)
	})
}

func (o *Orchestrator) runSurfacePhase(ctx context.Context, pw *progress.Writer, c *counters, limit int) error {
	refs, err := o.store.GetListingsWithoutSurface(limit)
	if err != nil {
		return err
	}
	pw.AddTotal(len(refs))

	for _, ref := range refs {
		if err := o.checkCancelled(); err != nil {
			return err
		}

		surface, err := o.detail.ScrapeSurface(ctx, ref.URLPath)
		c.pagesScraped++
		if err != nil {
			var missing *scrapeerr.MissingField
			if errors.As(err, &missing) {
				_ = pw.Tick(false, false, true, ref.URLPath)
			} else {
				c.errorsCount++
				_ = pw.Tick(false, true, false, ref.URLPath)
			}
			continue
		}
		if err := o.store.UpdateListingSurface(ref.LicitorID, surface); err != nil {
			c.errorsCount++
			_ = pw.Tick(false, true, false, ref.URLPath)
			continue
		}
		c.listingsUpdated++
		if err := pw.Tick(true, false, false, ref.URLPath); err != nil {
			return err
		}
	}
	return nil
}
