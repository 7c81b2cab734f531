package store

import "github.com/encheres-immo/scraper/internal/models"

// InsertAdjudicationResult records (or replaces) a manually-entered final
// price for a listing. A second entry for the same listing overwrites the
// first rather than erroring.
func (s *Store) InsertAdjudicationResult(r models.AdjudicationResult) error {
	return s.db.Exec(`
		INSERT OR REPLACE INTO adjudication_results (listing_id, final_price, price_source, notes)
		VALUES (?, ?, ?, ?)
	`, r.ListingID, r.FinalPrice, string(r.PriceSource), r.Notes).Error
}
