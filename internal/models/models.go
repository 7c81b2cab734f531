// Package models holds the domain types shared across scrapers, the
// store, and the alert engine. These are plain structs — the persistence
// mapping lives in internal/store, not here.
package models

import "time"

// Tribunal is one judicial court page on the upstream site.
type Tribunal struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Region       string `json:"region"`
	ListingCount int    `json:"listingCount"`
	URLPath      string `json:"urlPath"`
}

// ListingSummary is what the tribunal and history walkers produce per
// row: enough to upsert a Listing without having visited its detail page.
type ListingSummary struct {
	LicitorID        int
	URLPath          string
	PropertyType     string
	DepartmentCode   string
	City             string
	StartingPrice    *int // MISE A PRIX, EUROS
	DescriptionShort string
	PublicationDate  string

	// RESULT FIELDS, ONLY SET BY THE HISTORY WALKER
	FinalPrice   *int
	ResultStatus ResultStatus
	ResultDate   string
}

// ResultStatus is the closed set of hearing outcomes: sold / carence /
// non_requise, or the zero value when unknown.
type ResultStatus string

const (
	ResultUnknown    ResultStatus = ""
	ResultSold       ResultStatus = "sold"
	ResultCarence    ResultStatus = "carence"
	ResultNonRequise ResultStatus = "non_requise"
)

// ListingDetail is the full extraction from a listing's own page. Every
// field is best-effort: a zero value means "not found", never a hard
// failure.
type ListingDetail struct {
	LicitorID int
	URLPath   string

	PropertyType string
	Description  string
	SurfaceM2    *float64

	DepartmentCode string
	City           string
	FullAddress    string
	Latitude       *float64
	Longitude      *float64
	CadastralRef   string

	TribunalName string
	TribunalSlug string
	AuctionDate  string // ISO YYYY-MM-DD
	AuctionTime  string // HH:MM

	StartingPrice *int
	CaseReference string
	LawyerName    string
	LawyerPhone   string

	ViewCount      *int
	FavoritesCount *int

	PricePerM2Min *float64
	PricePerM2Avg *float64
	PricePerM2Max *float64

	EnergyRating    string
	OccupancyStatus string
	PublicationDate string
}

// ScrapeLog mirrors one row of the scrape_log table.
type ScrapeLog struct {
	ID              int64
	JobType         string
	StartedAt       time.Time
	FinishedAt      *time.Time
	PagesScraped    int
	ListingsNew     int
	ListingsUpdated int
	Errors          int
	Notes           string
}

// Alert is a user-defined matching criterion.
type Alert struct {
	ID              int64
	Name            string
	MinPrice        *int
	MaxPrice        *int
	MinSurface      *float64
	MaxSurface      *float64
	DepartmentCodes string // COMMA-JOINED
	Regions         string // COMMA-JOINED
	PropertyTypes   string // COMMA-JOINED
	TribunalSlugs   string // COMMA-JOINED
	IsActive        bool
}

// AlertMatch is a deduplicated (alert, listing) pair.
type AlertMatch struct {
	ID        int64
	AlertID   int64
	ListingID int64
	MatchedAt time.Time
	IsSeen    bool
}

// AdjudicationSource enumerates where a manually-entered final price came
// from.
type AdjudicationSource string

const (
	SourceManual    AdjudicationSource = "manual"
	SourceExternal  AdjudicationSource = "external"
	SourceEstimated AdjudicationSource = "estimated"
)

// AdjudicationResult is an operator-entered correction/addition to a
// listing's sale outcome. The form that produces these lives outside this
// module; the table and the insert operation do not.
type AdjudicationResult struct {
	ID          int64
	ListingID   int64
	FinalPrice  int
	PriceSource AdjudicationSource
	Notes       string
}

// ListingStatus is the Listing.status enum.
type ListingStatus string

const (
	StatusUpcoming ListingStatus = "upcoming"
	StatusPast     ListingStatus = "past"
)

// JobType enumerates the six scrape_log.job_type values the store's CHECK
// constraint must accept.
type JobType string

const (
	JobFullIndex       JobType = "full_index"
	JobIncremental     JobType = "incremental"
	JobHistory         JobType = "history"
	JobDetailBackfill  JobType = "detail_backfill"
	JobMapBackfill     JobType = "map_backfill"
	JobSurfaceBackfill JobType = "surface_backfill"
)
