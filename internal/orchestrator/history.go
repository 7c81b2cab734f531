package orchestrator

import (
	"context"
	"sort"

	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/progress"
)

// RunHistoryBackfill discovers every tribunal's results page and walks
// each one backward through its past hearings, recording sale outcomes.
// tribunalSlugs restricts the walk to those slugs when non-empty;
// maxHearings overrides the configured per-tribunal bound when > 0.
func (o *Orchestrator) RunHistoryBackfill(ctx context.Context, tribunalSlugs []string, maxHearings int) error {
	if maxHearings <= 0 {
		maxHearings = o.cfg.MaxHearingsPerTribunal
	}
	return o.run(ctx, models.JobHistory, func(ctx context.Context, pw *progress.Writer, c *counters) error {
		touched, err := o.runHistoryPhase(ctx, pw, c, tribunalSlugs, maxHearings)
		if err != nil {
			return err
		}
		return o.matchAlerts(touched)
	})
}

// runHistoryPhase is RunHistoryBackfill's body: discover every tribunal
// results URL, filter by slug when requested, then walk each one
// backward bounded by maxHearings. History backfill is its own
// standalone workflow, not one of Full's phases.
func (o *Orchestrator) runHistoryPhase(ctx context.Context, pw *progress.Writer, c *counters, tribunalSlugs []string, maxHearings int) ([]int, error) {
	urlsBySlug, err := o.history.DiscoverTribunalResultsURLs(ctx, o.cfg.HistoryPath)
	if err != nil {
		return nil, err
	}

	wanted := urlsBySlug
	if len(tribunalSlugs) > 0 {
		wanted = map[string]string{}
		for _, slug := range tribunalSlugs {
			if url, ok := urlsBySlug[slug]; ok {
				wanted[slug] = url
			}
		}
	}

	pw.AddTotal(len(wanted))

	// Tribunals are walked in slug order so a run's item sequence is
	// deterministic for a given discovery page.
	slugs := make([]string, 0, len(wanted))
	for slug := range wanted {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var touched []int
	for _, slug := range slugs {
		startURL := wanted[slug]
		if err := o.checkCancelled(); err != nil {
			return touched, err
		}

		visited := map[string]bool{}
		results, err := o.history.ScrapeTribunalHistory(ctx, startURL, maxHearings, visited)
		c.pagesScraped += len(visited)
		if err != nil {
			c.errorsCount++
			_ = pw.Tick(false, true, false, slug)
			continue
		}

		for _, r := range results {
			// Historical listings get their hearing date from the result row;
			// a carence with no parseable date leaves auction_date null.
			inserted, err := o.store.UpsertListingSummary(r, slug, true, r.ResultDate)
			if err != nil {
				c.errorsCount++
				continue
			}
			if inserted {
				c.listingsNew++
			} else {
				c.listingsUpdated++
			}
			touched = append(touched, r.LicitorID)
		}
		if err := pw.Tick(true, false, false, slug); err != nil {
			return touched, err
		}
	}

	return touched, nil
}
