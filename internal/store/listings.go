package store

import (
	"time"

	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
)

// UpsertTribunals inserts or updates every tribunal by slug; name,
// region, and listing count always reflect the latest index walk.
func (s *Store) UpsertTribunals(tribunals []models.Tribunal) error {
	for _, t := range tribunals {
		err := s.db.Exec(`
			INSERT INTO tribunals (slug, name, region, listing_count, url_path)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET
				name = excluded.name,
				region = excluded.region,
				listing_count = excluded.listing_count,
				url_path = excluded.url_path
		`, t.Slug, t.Name, t.Region, t.ListingCount, t.URLPath).Error
		if err != nil {
			return &scrapeerr.StoreIntegrity{Op: "upsert_tribunal:" + t.Slug, Err: err}
		}
	}
	return nil
}

// UpsertListingSummary inserts a new listing row, or merges onto an
// existing one without ever overwriting a populated column with NULL.
// Only the incoming non-null fields are applied to an existing row,
// result_status being set also flips status to 'past', and
// is_historical is monotonic
// (OR'd in, never cleared). auctionDate is the optional hearing date the
// caller already knows — the history walker passes the result date, so a
// carence row with no date leaves auction_date null.
func (s *Store) UpsertListingSummary(l models.ListingSummary, tribunalSlug string, isHistorical bool, auctionDate string) (bool, error) {
	var existingID int64
	err := s.db.Raw("SELECT id FROM listings WHERE licitor_id = ?", l.LicitorID).Scan(&existingID).Error
	if err != nil {
		return false, &scrapeerr.StoreIntegrity{Op: "lookup_listing", Err: err}
	}

	var tribunalID *int64
	if tribunalSlug != "" {
		var id int64
		if err := s.db.Raw("SELECT id FROM tribunals WHERE slug = ?", tribunalSlug).Scan(&id).Error; err == nil && id != 0 {
			tribunalID = &id
		}
	}

	if existingID == 0 {
		status := "upcoming"
		if l.ResultStatus != models.ResultUnknown {
			status = "past"
		}
		err := s.db.Exec(`
			INSERT INTO listings (
				licitor_id, tribunal_id, url_path, property_type, department_code,
				city, starting_price, description_short, publication_date,
				status, final_price, result_status, result_date, is_historical,
				auction_date
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))
		`, l.LicitorID, tribunalID, l.URLPath, l.PropertyType, l.DepartmentCode,
			l.City, l.StartingPrice, l.DescriptionShort, l.PublicationDate,
			status, l.FinalPrice, nullableResultStatus(l.ResultStatus), l.ResultDate, boolToInt(isHistorical),
			auctionDate,
		).Error
		if err != nil {
			return false, &scrapeerr.StoreIntegrity{Op: "insert_listing:" + l.URLPath, Err: err}
		}
		return true, nil
	}

	if err := s.mergeListingSummary(existingID, l, tribunalID, isHistorical, auctionDate); err != nil {
		return false, err
	}
	return false, nil
}

// mergeListingSummary runs a field-by-field COALESCE update: every column
// keeps its stored value unless the incoming row supplies a non-null
// replacement.
func (s *Store) mergeListingSummary(id int64, l models.ListingSummary, tribunalID *int64, isHistorical bool, auctionDate string) error {
	setStatusPast := l.ResultStatus != models.ResultUnknown

	err := s.db.Exec(`
		UPDATE listings SET
			tribunal_id       = COALESCE(?, tribunal_id),
			url_path          = COALESCE(NULLIF(?, ''), url_path),
			property_type     = COALESCE(NULLIF(?, ''), property_type),
			department_code   = COALESCE(NULLIF(?, ''), department_code),
			city              = COALESCE(NULLIF(?, ''), city),
			starting_price    = COALESCE(?, starting_price),
			description_short = COALESCE(NULLIF(?, ''), description_short),
			publication_date  = COALESCE(NULLIF(?, ''), publication_date),
			final_price       = COALESCE(?, final_price),
			result_status     = COALESCE(?, result_status),
			result_date       = COALESCE(NULLIF(?, ''), result_date),
			auction_date      = COALESCE(NULLIF(?, ''), auction_date),
			status            = CASE WHEN ? THEN 'past' ELSE status END,
			is_historical     = is_historical OR ?,
			last_scraped_at   = datetime('now')
		WHERE id = ?
	`,
		tribunalID, l.URLPath, l.PropertyType, l.DepartmentCode, l.City,
		l.StartingPrice, l.DescriptionShort, l.PublicationDate,
		l.FinalPrice, nullableResultStatus(l.ResultStatus), l.ResultDate,
		auctionDate, setStatusPast, boolToInt(isHistorical), id,
	).Error
	if err != nil {
		return &scrapeerr.StoreIntegrity{Op: "merge_listing:" + l.URLPath, Err: err}
	}
	return nil
}

// UpdateListingDetail overwrites the detail fields on a listing. The
// exceptions are starting_price, department_code and city, which take the
// detail page's value when it has one and otherwise keep the stored value:
// a detail page that omits the mise a prix never clears a known one.
func (s *Store) UpdateListingDetail(d models.ListingDetail) error {
	err := s.db.Exec(`
		UPDATE listings SET
			property_type    = ?,
			description       = ?,
			surface_m2        = ?,
			department_code   = COALESCE(NULLIF(?, ''), department_code),
			city              = COALESCE(NULLIF(?, ''), city),
			full_address      = ?,
			latitude          = ?,
			longitude         = ?,
			cadastral_ref     = ?,
			tribunal_name     = ?,
			auction_date      = ?,
			auction_time      = ?,
			starting_price    = COALESCE(?, starting_price),
			case_reference    = ?,
			lawyer_name       = ?,
			lawyer_phone      = ?,
			view_count        = ?,
			favorites_count   = ?,
			price_per_m2_min  = ?,
			price_per_m2_avg  = ?,
			price_per_m2_max  = ?,
			energy_rating     = ?,
			occupancy_status  = ?,
			detail_scraped    = 1,
			last_scraped_at   = datetime('now')
		WHERE licitor_id = ?
	`,
		d.PropertyType, d.Description, d.SurfaceM2, d.DepartmentCode, d.City,
		d.FullAddress, d.Latitude, d.Longitude, d.CadastralRef,
		d.TribunalName, d.AuctionDate, d.AuctionTime, d.StartingPrice,
		d.CaseReference, d.LawyerName, d.LawyerPhone, d.ViewCount, d.FavoritesCount,
		d.PricePerM2Min, d.PricePerM2Avg, d.PricePerM2Max,
		d.EnergyRating, d.OccupancyStatus, d.LicitorID,
	).Error
	if err != nil {
		return &scrapeerr.StoreIntegrity{Op: "update_listing_detail", Err: err}
	}
	return nil
}

// UpdateListingSurface sets only the surface area on an existing listing.
func (s *Store) UpdateListingSurface(licitorID int, surface *float64) error {
	return s.db.Exec(
		"UPDATE listings SET surface_m2 = ?, last_scraped_at = datetime('now') WHERE licitor_id = ?",
		surface, licitorID,
	).Error
}

// UpdateListingMiseAPrix sets only the starting price on an existing
// listing, used by the map-backfill workflow.
func (s *Store) UpdateListingMiseAPrix(licitorID int, price *int) error {
	return s.db.Exec(
		"UPDATE listings SET starting_price = ?, last_scraped_at = datetime('now') WHERE licitor_id = ?",
		price, licitorID,
	).Error
}

// MarkPastAuctions flips status to 'past' for every listing whose
// auction_date has already elapsed, independent of whether a result has
// been recorded yet.
func (s *Store) MarkPastAuctions(asOf time.Time) (int64, error) {
	res := s.db.Exec(
		"UPDATE listings SET status = 'past' WHERE status = 'upcoming' AND auction_date != '' AND auction_date < ?",
		asOf.Format("2006-01-02"),
	)
	return res.RowsAffected, res.Error
}

// noLimit stands in for "every row" — a limit <= 0 means the caller
// wants the whole backlog, not zero rows.
const noLimit = -1

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return noLimit
	}
	return limit
}

// GetListingsWithoutDetail returns up to limit listings that have never
// had their detail page scraped, soonest auction first. limit <= 0 means
// no cap.
func (s *Store) GetListingsWithoutDetail(limit int) ([]ListingRef, error) {
	var refs []ListingRef
	err := s.db.Raw(
		"SELECT licitor_id, url_path FROM listings WHERE detail_scraped = 0 ORDER BY auction_date ASC LIMIT ?",
		effectiveLimit(limit),
	).Scan(&refs).Error
	return refs, err
}

// GetListingsWithoutStartingPrice returns historical listings whose
// starting_price is still unset, newest licitor_id first. Only
// historical listings are eligible: upcoming listings get their
// starting_price from the ordinary tribunal walk, not the map-backfill
// workflow.
func (s *Store) GetListingsWithoutStartingPrice(limit int) ([]ListingRef, error) {
	var refs []ListingRef
	err := s.db.Raw(
		"SELECT licitor_id, url_path FROM listings WHERE starting_price IS NULL AND is_historical = 1 ORDER BY licitor_id DESC LIMIT ?",
		effectiveLimit(limit),
	).Scan(&refs).Error
	return refs, err
}

// GetListingsWithoutSurface returns historical listings whose surface_m2
// is still unset, newest licitor_id first. See GetListingsWithoutStartingPrice.
func (s *Store) GetListingsWithoutSurface(limit int) ([]ListingRef, error) {
	var refs []ListingRef
	err := s.db.Raw(
		"SELECT licitor_id, url_path FROM listings WHERE surface_m2 IS NULL AND is_historical = 1 ORDER BY licitor_id DESC LIMIT ?",
		effectiveLimit(limit),
	).Scan(&refs).Error
	return refs, err
}

// GetUndetailedAmong filters licitorIDs down to those whose detail page
// has never been scraped. The incremental workflow uses this to decide
// which of the ids it just touched still need a detail fetch.
func (s *Store) GetUndetailedAmong(licitorIDs []int) ([]ListingRef, error) {
	if len(licitorIDs) == 0 {
		return nil, nil
	}
	var refs []ListingRef
	err := s.db.Raw(
		"SELECT licitor_id, url_path FROM listings WHERE licitor_id IN ? AND detail_scraped = 0",
		licitorIDs,
	).Scan(&refs).Error
	return refs, err
}

// ListingRef is the minimal (id, url) pair the backfill workflows need to
// revisit a listing's own page.
type ListingRef struct {
	LicitorID int    `gorm:"column:licitor_id"`
	URLPath   string `gorm:"column:url_path"`
}

// ListingView is a listing joined with its tribunal's region, the shape
// alert matching evaluates. Region and TribunalSlug are empty for a
// listing with no tribunal link, never filtered out.
type ListingView struct {
	ID             int64
	LicitorID      int
	PropertyType   string
	DepartmentCode string
	SurfaceM2      *float64
	StartingPrice  *int
	Region         string
	TribunalSlug   string
}

// GetListingViewsByLicitorID loads the alert-matching view for a batch of
// listings, left-joined against tribunals so a listing with no tribunal
// link still comes back (with an empty region/slug) instead of being
// dropped.
func (s *Store) GetListingViewsByLicitorID(licitorIDs []int) ([]ListingView, error) {
	if len(licitorIDs) == 0 {
		return nil, nil
	}
	var views []ListingView
	err := s.db.Raw(`
		SELECT l.id, l.licitor_id, l.property_type, l.department_code,
		       l.surface_m2, l.starting_price, t.region, t.slug AS tribunal_slug
		FROM listings l
		LEFT JOIN tribunals t ON t.id = l.tribunal_id
		WHERE l.licitor_id IN ?
	`, licitorIDs).Scan(&views).Error
	return views, err
}

func nullableResultStatus(r models.ResultStatus) interface{} {
	if r == models.ResultUnknown {
		return nil
	}
	return string(r)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
