// Package orchestrator wires the scrapers, store, alert engine, and
// progress reporter into the named workflows a CLI invocation launches.
// Every workflow follows the same shape: start a scrape_log row, open a
// progress writer, run the loop, close both out.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/encheres-immo/scraper/internal/alerts"
	"github.com/encheres-immo/scraper/internal/config"
	"github.com/encheres-immo/scraper/internal/httpclient"
	"github.com/encheres-immo/scraper/internal/logging"
	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/progress"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
	"github.com/encheres-immo/scraper/internal/scrapers"
	"github.com/encheres-immo/scraper/internal/store"
)

// Orchestrator owns one of everything a workflow needs: a store handle,
// an HTTP client, the four page scrapers built on it, and the alert
// engine.
type Orchestrator struct {
	cfg         *config.Config
	store       *store.Store
	index       *scrapers.IndexScraper
	tribn       *scrapers.TribunalScraper
	detail      *scrapers.DetailScraper
	history     *scrapers.HistoryScraper
	alertEngine *alerts.Engine
}

// New builds an Orchestrator around a single shared httpclient.Client, so
// every page fetch across a workflow obeys the same rate limit.
func New(cfg *config.Config, st *store.Store) *Orchestrator {
	client := httpclient.New(cfg)
	return &Orchestrator{
		cfg:         cfg,
		store:       st,
		index:       scrapers.NewIndexScraper(client),
		tribn:       scrapers.NewTribunalScraper(client),
		detail:      scrapers.NewDetailScraper(client),
		history:     scrapers.NewHistoryScraper(client),
		alertEngine: alerts.NewEngine(st),
	}
}

// counters accumulates the outcome of one workflow run for the
// scrape_log row it finishes into.
type counters struct {
	pagesScraped    int
	listingsNew     int
	listingsUpdated int
	errorsCount     int
}

// runFn is the body of one workflow: it's handed a live progress.Writer
// to Tick and a context it must check via progress.IsCancelRequested at
// each loop head, returning scrapeerr.ErrCancelled the moment it's set.
type runFn func(ctx context.Context, pw *progress.Writer, c *counters) error

// run is the shared try/except/finally shape every run_* method in the
// original follows: start the log, open progress, run the body, settle
// the terminal status, finish the log, and always clear the cancel flag.
// Every workflow opens at total=0 and grows the expected item count with
// AddTotal as each phase discovers its backlog.
func (o *Orchestrator) run(ctx context.Context, jobType models.JobType, body runFn) error {
	if progress.IsJobRunning(o.cfg.DataPath, o.cfg.StaleTimeout()) {
		return scrapeerr.ErrJobAlreadyRunning
	}

	// runID never leaves this process: it's a diagnostic correlation id
	// stitching together the log lines of one workflow run, not a stored
	// column.
	runID := uuid.New().String()
	logging.Infof("run %s: starting %s", runID, jobType)

	logID, err := o.store.StartScrapeLog(jobType, time.Now())
	if err != nil {
		return fmt.Errorf("start scrape log: %w", err)
	}

	pw, err := progress.New(o.cfg.DataPath, string(jobType), 0)
	if err != nil {
		return fmt.Errorf("open progress writer: %w", err)
	}

	var c counters
	runErr := body(ctx, pw, &c)

	defer func() {
		_ = progress.ClearCancelFlag(o.cfg.DataPath)
	}()

	switch {
	case runErr == nil:
		logging.Infof("run %s: finished (%d pages, %d new, %d updated, %d errors)", runID, c.pagesScraped, c.listingsNew, c.listingsUpdated, c.errorsCount)
		_ = pw.Finish()
		return o.store.FinishScrapeLog(logID, c.pagesScraped, c.listingsNew, c.listingsUpdated, c.errorsCount, "")
	case errors.Is(runErr, scrapeerr.ErrCancelled):
		logging.Infof("run %s: cancelled by operator", runID)
		_ = pw.Cancel()
		if err := o.store.FinishScrapeLog(logID, c.pagesScraped, c.listingsNew, c.listingsUpdated, c.errorsCount, "cancelled by operator"); err != nil {
			return &scrapeerr.Fatal{Err: err}
		}
		// Cancellation is a terminal status distinct from Fatal: callers use
		// errors.Is(err, scrapeerr.ErrCancelled) to tell the two apart and
		// still exit 0.
		return scrapeerr.ErrCancelled
	default:
		logging.Errorf("run %s: aborted: %v", runID, runErr)
		_ = pw.Abort(runErr.Error())
		_ = o.store.FinishScrapeLog(logID, c.pagesScraped, c.listingsNew, c.listingsUpdated, c.errorsCount, runErr.Error())
		return &scrapeerr.Fatal{Err: runErr}
	}
}

// checkCancelled is called at the head of every per-item loop iteration.
func (o *Orchestrator) checkCancelled() error {
	if progress.IsCancelRequested(o.cfg.DataPath) {
		return scrapeerr.ErrCancelled
	}
	return nil
}

// matchAlerts re-evaluates alert criteria for a batch of newly touched
// listing ids.
func (o *Orchestrator) matchAlerts(licitorIDs []int) error {
	if len(licitorIDs) == 0 {
		return nil
	}
	rows, err := o.store.GetListingViewsByLicitorID(licitorIDs)
	if err != nil {
		return err
	}
	views := make([]alerts.ListingView, len(rows))
	for i, r := range rows {
		views[i] = alerts.ListingView{
			ID:             r.ID,
			PropertyType:   r.PropertyType,
			DepartmentCode: r.DepartmentCode,
			SurfaceM2:      r.SurfaceM2,
			StartingPrice:  r.StartingPrice,
			Region:         r.Region,
			TribunalSlug:   r.TribunalSlug,
		}
	}
	return o.alertEngine.MatchNewListings(views)
}
