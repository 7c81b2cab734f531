package store

import (
	"time"

	"github.com/encheres-immo/scraper/internal/models"
)

// GetActiveAlerts returns every alert with is_active=1.
func (s *Store) GetActiveAlerts() ([]models.Alert, error) {
	var rows []alertRow
	err := s.db.Raw(`
		SELECT id, name, min_price, max_price, min_surface, max_surface,
		       department_codes, regions, property_types, tribunal_slugs, is_active
		FROM alerts WHERE is_active = 1
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	alerts := make([]models.Alert, len(rows))
	for i, r := range rows {
		alerts[i] = r.toModel()
	}
	return alerts, nil
}

// CreateAlert inserts a new alert and returns its id.
func (s *Store) CreateAlert(a models.Alert) (int64, error) {
	res := s.db.Exec(`
		INSERT INTO alerts (
			name, min_price, max_price, min_surface, max_surface,
			department_codes, regions, property_types, tribunal_slugs, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Name, a.MinPrice, a.MaxPrice, a.MinSurface, a.MaxSurface,
		a.DepartmentCodes, a.Regions, a.PropertyTypes, a.TribunalSlugs, boolToInt(a.IsActive))
	if res.Error != nil {
		return 0, res.Error
	}
	var id int64
	err := s.db.Raw("SELECT last_insert_rowid()").Scan(&id).Error
	return id, err
}

// UpdateAlert rewrites every criterion on an existing alert.
func (s *Store) UpdateAlert(a models.Alert) error {
	return s.db.Exec(`
		UPDATE alerts SET
			name = ?, min_price = ?, max_price = ?, min_surface = ?, max_surface = ?,
			department_codes = ?, regions = ?, property_types = ?, tribunal_slugs = ?,
			is_active = ?
		WHERE id = ?
	`, a.Name, a.MinPrice, a.MaxPrice, a.MinSurface, a.MaxSurface,
		a.DepartmentCodes, a.Regions, a.PropertyTypes, a.TribunalSlugs,
		boolToInt(a.IsActive), a.ID).Error
}

// DeleteAlert removes an alert by id.
func (s *Store) DeleteAlert(id int64) error {
	return s.db.Exec("DELETE FROM alerts WHERE id = ?", id).Error
}

// ToggleAlert sets is_active on an alert to active.
func (s *Store) ToggleAlert(id int64, active bool) error {
	return s.db.Exec("UPDATE alerts SET is_active = ? WHERE id = ?", boolToInt(active), id).Error
}

// InsertAlertMatch records an (alert, listing) match idempotently: a
// second call for the same pair is a silent no-op.
func (s *Store) InsertAlertMatch(alertID, listingID int64) error {
	return s.db.Exec(
		"INSERT OR IGNORE INTO alert_matches (alert_id, listing_id) VALUES (?, ?)",
		alertID, listingID,
	).Error
}

// UnreadMatch is one row of the joined unread-matches query.
type UnreadMatch struct {
	MatchID   int64
	AlertID   int64
	AlertName string
	LicitorID int
	URLPath   string
	MatchedAt time.Time
}

// GetUnreadMatches returns every alert_matches row with is_seen=0 joined
// against its alert and listing.
func (s *Store) GetUnreadMatches() ([]UnreadMatch, error) {
	var rows []unreadMatchRow
	err := s.db.Raw(`
		SELECT m.id AS match_id, m.alert_id, a.name AS alert_name,
		       l.licitor_id, l.url_path, m.matched_at
		FROM alert_matches m
		JOIN alerts a ON a.id = m.alert_id
		JOIN listings l ON l.id = m.listing_id
		WHERE m.is_seen = 0
		ORDER BY m.matched_at DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	matches := make([]UnreadMatch, len(rows))
	for i, r := range rows {
		matches[i] = r.toModel()
	}
	return matches, nil
}

// MarkMatchesSeen flips is_seen for a batch of alert_matches ids.
func (s *Store) MarkMatchesSeen(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Exec("UPDATE alert_matches SET is_seen = 1 WHERE id IN ?", ids).Error
}

type alertRow struct {
	ID              int64
	Name            string
	MinPrice        *int
	MaxPrice        *int
	MinSurface      *float64
	MaxSurface      *float64
	DepartmentCodes string
	Regions         string
	PropertyTypes   string
	TribunalSlugs   string
	IsActive        bool
}

func (r alertRow) toModel() models.Alert {
	return models.Alert{
		ID:              r.ID,
		Name:            r.Name,
		MinPrice:        r.MinPrice,
		MaxPrice:        r.MaxPrice,
		MinSurface:      r.MinSurface,
		MaxSurface:      r.MaxSurface,
		DepartmentCodes: r.DepartmentCodes,
		Regions:         r.Regions,
		PropertyTypes:   r.PropertyTypes,
		TribunalSlugs:   r.TribunalSlugs,
		IsActive:        r.IsActive,
	}
}

type unreadMatchRow struct {
	MatchID   int64
	AlertID   int64
	AlertName string
	LicitorID int
	URLPath   string
	MatchedAt time.Time
}

func (r unreadMatchRow) toModel() UnreadMatch {
	return UnreadMatch{
		MatchID:   r.MatchID,
		AlertID:   r.AlertID,
		AlertName: r.AlertName,
		LicitorID: r.LicitorID,
		URLPath:   r.URLPath,
		MatchedAt: r.MatchedAt,
	}
}
