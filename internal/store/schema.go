package store

// schemaDDL creates every table from a blank database. It is safe to
// re-run: every statement is CREATE TABLE IF NOT EXISTS. CHECK
// constraints live on scrape_log.job_type and
// listings.status/result_status.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS tribunals (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	slug          TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	region        TEXT,
	listing_count INTEGER NOT NULL DEFAULT 0,
	url_path      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS listings (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	licitor_id         INTEGER NOT NULL UNIQUE,
	tribunal_id        INTEGER REFERENCES tribunals(id),
	url_path           TEXT NOT NULL,
	property_type      TEXT,
	department_code    TEXT,
	city               TEXT,
	starting_price     INTEGER,
	description_short  TEXT,
	publication_date   TEXT,
	status             TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming', 'past')),
	final_price        INTEGER,
	result_status      TEXT CHECK (result_status IS NULL OR result_status IN ('sold', 'carence', 'non_requise')),
	result_date        TEXT,
	is_historical      INTEGER NOT NULL DEFAULT 0,
	detail_scraped     INTEGER NOT NULL DEFAULT 0,
	description        TEXT,
	surface_m2         REAL,
	full_address       TEXT,
	latitude           REAL,
	longitude          REAL,
	cadastral_ref      TEXT,
	tribunal_name      TEXT,
	auction_date       TEXT,
	auction_time       TEXT,
	case_reference     TEXT,
	lawyer_name        TEXT,
	lawyer_phone       TEXT,
	view_count         INTEGER,
	favorites_count    INTEGER,
	price_per_m2_min   REAL,
	price_per_m2_avg   REAL,
	price_per_m2_max   REAL,
	energy_rating      TEXT,
	occupancy_status   TEXT,
	created_at         TEXT NOT NULL DEFAULT (datetime('now')),
	last_scraped_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scrape_log (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	job_type         TEXT NOT NULL CHECK (job_type IN
	                   ('full_index', 'incremental', 'history',
	                    'detail_backfill', 'map_backfill', 'surface_backfill')),
	started_at       TEXT NOT NULL,
	finished_at      TEXT,
	pages_scraped    INTEGER NOT NULL DEFAULT 0,
	listings_new     INTEGER NOT NULL DEFAULT 0,
	listings_updated INTEGER NOT NULL DEFAULT 0,
	errors           INTEGER NOT NULL DEFAULT 0,
	notes            TEXT
);

CREATE TABLE IF NOT EXISTS alerts (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	min_price        INTEGER,
	max_price        INTEGER,
	min_surface      REAL,
	max_surface      REAL,
	department_codes TEXT,
	regions          TEXT,
	property_types   TEXT,
	tribunal_slugs   TEXT,
	is_active        INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS alert_matches (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id     INTEGER NOT NULL REFERENCES alerts(id),
	listing_id   INTEGER NOT NULL REFERENCES listings(id),
	matched_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	is_seen      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(alert_id, listing_id)
);

CREATE TABLE IF NOT EXISTS adjudication_results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id   INTEGER NOT NULL REFERENCES listings(id),
	final_price  INTEGER NOT NULL,
	price_source TEXT NOT NULL DEFAULT 'manual' CHECK (price_source IN ('manual', 'external', 'estimated')),
	notes        TEXT,
	UNIQUE(listing_id)
);

CREATE INDEX IF NOT EXISTS idx_listings_tribunal_id ON listings(tribunal_id);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_result_status ON listings(result_status);
`

// jobTypeValues is kept in sync with the CHECK constraint above; it is
// what migrateJobTypeConstraint probes to decide whether scrape_log needs
// rebuilding after a new job type is added.
var jobTypeValues = []string{
	"full_index", "incremental", "history",
	"detail_backfill", "map_backfill", "surface_backfill",
}
