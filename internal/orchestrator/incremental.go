package orchestrator

import (
	"context"
	"time"

	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/progress"
)

// RunIncremental re-walks the France index and every tribunal's current
// hearing (plus whatever other upcoming hearings it links to), upserting
// each listing summary, filling in the detail page for any touched id
// that still lacks one, marking elapsed auctions past, and re-matching
// alerts against anything touched.
func (o *Orchestrator) RunIncremental(ctx context.Context) error {
	return o.run(ctx, models.JobIncremental, func(ctx context.Context, pw *progress.Writer, c *counters) error {
		tribunals, err := o.index.Scrape(ctx, o.cfg.IndexPath)
		if err != nil {
			return err
		}
		c.pagesScraped++

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
		return nil
	})
}

// runHearingsPhase upserts the tribunal index, then walks every active
// tribunal's upcoming hearings, returning every licitor_id it touched.
func (o *Orchestrator) runHearingsPhase(ctx context.Context, pw *progress.Writer, c *counters, tribunals []models.Tribunal) ([]int, error) {
	if err := o.store.UpsertTribunals(tribunals); err != nil {
		return nil, err
	}
	pw.AddTotal(len(tribunals))

	var touched []int
	for _, t := range tribunals {
		if err := o.checkCancelled(); err != nil {
			return touched, err
		}

		visited := map[string]bool{}
		listings, err := o.tribn.Scrape(ctx, t.URLPath, visited)
		c.pagesScraped += len(visited)
		if err != nil {
			c.errorsCount++
			_ = pw.Tick(false, true, false, t.URLPath)
			continue
		}

		for _, l := range listings {
			inserted, err := o.store.UpsertListingSummary(l, t.Slug, false, "")
			if err != nil {
				c.errorsCount++
				continue
			}
			if inserted {
				c.listingsNew++
			} else {
				c.listingsUpdated++
			}
			touched = append(touched, l.LicitorID)
		}

		if err := pw.Tick(true, false, false, t.Name); err != nil {
			return touched, err
		}
	}

	return touched, nil
}

// fillMissingDetail scrapes the detail page for every touched id that has
// never had one, matching incremental's "for each new id without detail,
// scrape detail" step.
func (o *Orchestrator) fillMissingDetail(ctx context.Context, pw *progress.Writer, c *counters, touched []int) error {
	refs, err := o.store.GetUndetailedAmong(touched)
	if err != nil {
		return err
	}
	pw.AddTotal(len(refs))

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
		if err := pw.Tick(true, false, false, ref.URLPath); err != nil {
			return err
		}
	}
	return nil
}
