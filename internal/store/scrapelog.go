package store

import (
	"time"

	"github.com/encheres-immo/scraper/internal/models"
)

// StartScrapeLog inserts a new scrape_log row and returns its id.
func (s *Store) StartScrapeLog(jobType models.JobType, startedAt time.Time) (int64, error) {
	res := s.db.Exec(
		"INSERT INTO scrape_log (job_type, started_at) VALUES (?, ?)",
		string(jobType), startedAt.UTC().Format(time.RFC3339),
	)
	if res.Error != nil {
		return 0, res.Error
	}
	var id int64
	err := s.db.Raw("SELECT last_insert_rowid()").Scan(&id).Error
	return id, err
}

// FinishScrapeLog records the outcome counters and finish time for a
// scrape_log row.
func (s *Store) FinishScrapeLog(id int64, pagesScraped, listingsNew, listingsUpdated, errorsCount int, notes string) error {
	return s.db.Exec(`
		UPDATE scrape_log SET
			finished_at      = ?,
			pages_scraped    = ?,
			listings_new     = ?,
			listings_updated = ?,
			errors           = ?,
			notes            = ?
		WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), pagesScraped, listingsNew, listingsUpdated, errorsCount, notes, id).Error
}
