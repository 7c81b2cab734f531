// Package alerts matches newly-ingested listings against operator-defined
// criteria and records the hits.
package alerts

import (
	"strings"

	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/store"
)

// ListingView is the (listing, region) pair MatchNewListings needs —
// region comes from a LEFT JOIN against tribunals, so it is empty for a
// listing whose tribunal link is missing.
type ListingView struct {
	ID             int64
	PropertyType   string
	DepartmentCode string
	SurfaceM2      *float64
	StartingPrice  *int
	Region         string
	TribunalSlug   string
}

// Engine matches listings against active alerts and idempotently records
// matches in the store.
type Engine struct {
	store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// MatchListing reports whether listing satisfies every criterion alert
// sets, conjunctively: an unset alert bound always passes, a null listing
// value is treated as zero for numeric comparisons, and a non-empty alert
// list is matched against a single listing field by case-insensitive
// substring (property type) or exact membership
// (department/region/tribunal).
func MatchListing(listing ListingView, alert models.Alert) bool {
	price := deref(listing.StartingPrice)
	if alert.MinPrice != nil && price < *alert.MinPrice {
		return false
	}
	if alert.MaxPrice != nil && price > *alert.MaxPrice {
		return false
	}

	surface := derefF(listing.SurfaceM2)
	if alert.MinSurface != nil && surface < *alert.MinSurface {
		return false
	}
	if alert.MaxSurface != nil && surface > *alert.MaxSurface {
		return false
	}

	if !membershipPasses(alert.DepartmentCodes, listing.DepartmentCode) {
		return false
	}
	if !membershipPasses(alert.Regions, listing.Region) {
		return false
	}
	if !membershipPasses(alert.TribunalSlugs, listing.TribunalSlug) {
		return false
	}
	if !substringPasses(alert.PropertyTypes, listing.PropertyType) {
		return false
	}

	return true
}

// MatchNewListings evaluates each given listing view (already joined with
// its tribunal's region by the caller) against every active alert and
// records a match for each alert it satisfies. A
// second call for a listing already matched against a given alert is a
// silent no-op.
func (e *Engine) MatchNewListings(views []ListingView) error {
	alertList, err := e.store.GetActiveAlerts()
	if err != nil {
		return err
	}
	if len(alertList) == 0 {
		return nil
	}

	for _, v := range views {
		for _, alert := range alertList {
			if MatchListing(v, alert) {
				if err := e.store.InsertAlertMatch(alert.ID, v.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func membershipPasses(criteriaCSV, value string) bool {
	criteria := splitCSV(criteriaCSV)
	if len(criteria) == 0 {
		return true
	}
	for _, c := range criteria {
		if strings.EqualFold(c, value) {
			return true
		}
	}
	return false
}

func substringPasses(criteriaCSV, value string) bool {
	criteria := splitCSV(criteriaCSV)
	if len(criteria) == 0 {
		return true
	}
	lowered := strings.ToLower(value)
	for _, c := range criteria {
		if strings.Contains(lowered, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func splitCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefF(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
