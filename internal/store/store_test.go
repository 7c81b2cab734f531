package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/encheres-immo/scraper/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	// Each test gets its own named in-memory database so they can't see
	// each other's rows even when SQLite's shared cache mode is in play.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

// mustUpsert discards the inserted/merged bool for tests that only care
// the row exists afterward; tests exercising that return value check it
// directly instead.
func mustUpsert(t *testing.T, s *Store, l models.ListingSummary, tribunalSlug string, isHistorical bool) {
	t.Helper()
	_, err := s.UpsertListingSummary(l, tribunalSlug, isHistorical, "")
	require.NoError(t, err)
}

func TestUpsertTribunalsThenListingSummaryInsertsNewRow(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertTribunals([]models.Tribunal{
		{Slug: "tj-paris", Name: "Tribunal Judiciaire de Paris", Region: "Île-de-France", ListingCount: 1, URLPath: "/tj-paris/"},
	}))

	summary := models.ListingSummary{
		LicitorID:        106898,
		URLPath:          "/annonce/106898.html",
		PropertyType:     "Appartement",
		DepartmentCode:   "75",
		City:             "Paris",
		StartingPrice:    intp(220000),
		DescriptionShort: "Bel appartement",
		PublicationDate:  "2026-03-12",
	}
	inserted, err := s.UpsertListingSummary(summary, "tj-paris", false, "")
	require.NoError(t, err)
	require.True(t, inserted)

	refs, err := s.GetListingsWithoutDetail(10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 106898, refs[0].LicitorID)

	inserted, err = s.UpsertListingSummary(summary, "tj-paris", false, "")
	require.NoError(t, err)
	require.False(t, inserted, "a second upsert of the same licitor_id must not report a fresh insert")
}

func TestUpsertListingSummaryMergeNeverOverwritesWithNull(t *testing.T) {
	s := openTestStore(t)

	first := models.ListingSummary{
		LicitorID:        1,
		URLPath:          "/annonce/1.html",
		PropertyType:     "Maison",
		DepartmentCode:   "13",
		City:             "Marseille",
		StartingPrice:    intp(150000),
		DescriptionShort: "Belle maison",
		PublicationDate:  "2026-01-01",
	}
	inserted, err := s.UpsertListingSummary(first, "", false, "")
	require.NoError(t, err)
	require.True(t, inserted)

	// A later pass sees the same listing via the history walker, with a
	// result but no starting price (it never re-reads the index row).
	second := models.ListingSummary{
		LicitorID:    1,
		ResultStatus: models.ResultSold,
		FinalPrice:   intp(160000),
		ResultDate:   "2026-02-01",
	}
	inserted, err = s.UpsertListingSummary(second, "", true, "2026-02-01")
	require.NoError(t, err)
	require.False(t, inserted)

	refs, err := s.GetListingsWithoutStartingPrice(10)
	require.NoError(t, err)
	require.Empty(t, refs, "starting_price set by the first pass must survive the second merge")
}

func TestUpdateListingDetailPreservesExistingStartingPrice(t *testing.T) {
	s := openTestStore(t)

	mustUpsert(t, s, models.ListingSummary{
		LicitorID:     2,
		URLPath:       "/annonce/2.html",
		StartingPrice: intp(90000),
	}, "", true)

	require.NoError(t, s.UpdateListingDetail(models.ListingDetail{
		LicitorID:    2,
		PropertyType: "Appartement",
		SurfaceM2:    floatp(65.5),
		// StartingPrice intentionally nil: the detail page sometimes omits it.
	}))

	refs, err := s.GetListingsWithoutStartingPrice(10)
	require.NoError(t, err)
	require.Empty(t, refs, "existing starting_price must survive a detail update with a nil price")
}

func TestGetListingsWithoutStartingPriceOnlyConsidersHistorical(t *testing.T) {
	s := openTestStore(t)

	// An upcoming listing with no starting_price is not eligible for the
	// map-backfill workflow; only historical listings are.
	mustUpsert(t, s, models.ListingSummary{
		LicitorID: 10, URLPath: "/annonce/10.html",
	}, "", false)
	mustUpsert(t, s, models.ListingSummary{
		LicitorID: 11, URLPath: "/annonce/11.html",
	}, "", true)

	refs, err := s.GetListingsWithoutStartingPrice(10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 11, refs[0].LicitorID)
}

func TestGetListingsWithoutSurfaceOnlyConsidersHistorical(t *testing.T) {
	s := openTestStore(t)

	mustUpsert(t, s, models.ListingSummary{
		LicitorID: 20, URLPath: "/annonce/20.html",
	}, "", false)
	mustUpsert(t, s, models.ListingSummary{
		LicitorID: 21, URLPath: "/annonce/21.html",
	}, "", true)

	refs, err := s.GetListingsWithoutSurface(10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 21, refs[0].LicitorID)
}

func TestInsertAlertMatchIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	mustUpsert(t, s, models.ListingSummary{LicitorID: 3, URLPath: "/annonce/3.html"}, "", false)
	alertID, err := s.CreateAlert(models.Alert{Name: "test", IsActive: true})
	require.NoError(t, err)

	var listingID int64
	require.NoError(t, s.db.Raw("SELECT id FROM listings WHERE licitor_id = ?", 3).Scan(&listingID).Error)

	require.NoError(t, s.InsertAlertMatch(alertID, listingID))
	require.NoError(t, s.InsertAlertMatch(alertID, listingID))

	matches, err := s.GetUnreadMatches()
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestMarkMatchesSeen(t *testing.T) {
	s := openTestStore(t)

	mustUpsert(t, s, models.ListingSummary{LicitorID: 4, URLPath: "/annonce/4.html"}, "", false)
	alertID, err := s.CreateAlert(models.Alert{Name: "test", IsActive: true})
	require.NoError(t, err)
	var listingID int64
	require.NoError(t, s.db.Raw("SELECT id FROM listings WHERE licitor_id = ?", 4).Scan(&listingID).Error)
	require.NoError(t, s.InsertAlertMatch(alertID, listingID))

	matches, err := s.GetUnreadMatches()
	require.NoError(t, err)
	require.Len(t, matches, 1)

	require.NoError(t, s.MarkMatchesSeen([]int64{matches[0].MatchID}))

	matches, err = s.GetUnreadMatches()
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestScrapeLogStartFinishRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.StartScrapeLog(models.JobIncremental, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.FinishScrapeLog(id, 5, 2, 1, 0, "ok"))

	var got struct {
		JobType      string
		PagesScraped int
	}
	require.NoError(t, s.db.Raw("SELECT job_type, pages_scraped FROM scrape_log WHERE id = ?", id).Scan(&got).Error)
	require.Equal(t, "incremental", got.JobType)
	require.Equal(t, 5, got.PagesScraped)
}

func TestGetActiveAlertsExcludesInactive(t *testing.T) {
	s := openTestStore(t)

	activeID, err := s.CreateAlert(models.Alert{Name: "active", IsActive: true, MinPrice: intp(50000)})
	require.NoError(t, err)
	_, err = s.CreateAlert(models.Alert{Name: "inactive", IsActive: false})
	require.NoError(t, err)

	alerts, err := s.GetActiveAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	want := models.Alert{ID: activeID, Name: "active", IsActive: true, MinPrice: intp(50000)}
	if diff := cmp.Diff(want, alerts[0]); diff != "" {
		t.Errorf("unexpected alert (-want +got):\n%s", diff)
	}
}
