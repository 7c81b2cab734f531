// Package store is the only place in this module that speaks SQL. It
// wraps a GORM handle (gorm.Open against a sqlite.Dialector, warn-level
// logging) but drives the schema and every query through hand-written
// SQL, so the merge-not-overwrite and CHECK-constraint-migration
// semantics this domain needs can be expressed exactly.
package store

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps a GORM handle opened against a single SQLite file with
// foreign keys and WAL journaling enabled.
type Store struct {
	db *gorm.DB
}

// Open connects to dbPath, enables foreign_keys and WAL mode, and brings
// the schema up to date. dbPath may already carry its own query string
// (as the in-memory test DSNs do), so the foreign_keys param is appended
// with whichever separator that leaves valid.
func Open(dbPath string) (*Store, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := gorm.Open(sqlite.Open(dbPath+sep+"_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := db.Exec("PRAGMA foreign_keys=ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying GORM handle for read-only consumers such as
// the dashboard's analytics queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the underlying *sql.DB connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// initialize creates every table if missing, then runs additive
// migrations. Safe to call on every open.
func (s *Store) initialize() error {
	if err := s.db.Exec(schemaDDL).Error; err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return s.migrate()
}

// migrate applies additive column changes to databases created by older
// builds. Each ALTER TABLE is allowed to fail with "duplicate column
// name", meaning it was already applied.
func (s *Store) migrate() error {
	alters := []string{
		"ALTER TABLE listings ADD COLUMN is_historical INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE listings ADD COLUMN detail_scraped INTEGER NOT NULL DEFAULT 0",
	}
	for _, stmt := range alters {
		if err := s.db.Exec(stmt).Error; err != nil {
			if !isDuplicateColumnErr(err) {
				return fmt.Errorf("migrate: %s: %w", stmt, err)
			}
		}
	}
	return s.migrateJobTypeConstraint()
}

// migrateJobTypeConstraint reads scrape_log's CREATE TABLE text back out
// of sqlite_master and checks every current job type is named in its
// CHECK clause. A table predating a newly added job type is rebuilt with
// the current constraint via create-copy-drop-rename, since SQLite cannot
// alter a CHECK in place.
func (s *Store) migrateJobTypeConstraint() error {
	var ddl string
	err := s.db.Raw(
		"SELECT sql FROM sqlite_master WHERE type='table' AND name='scrape_log'",
	).Scan(&ddl).Error
	if err != nil {
		return fmt.Errorf("read scrape_log ddl: %w", err)
	}

	needsRebuild := false
	for _, jt := range jobTypeValues {
		if !strings.Contains(ddl, "'"+jt+"'") {
			needsRebuild = true
			break
		}
	}
	if !needsRebuild {
		return nil
	}

	log.Printf("store: rebuilding scrape_log to widen job_type CHECK constraint")
	return s.db.Transaction(func(tx *gorm.DB) error {
		stmts := []string{
			`CREATE TABLE scrape_log_new (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				job_type         TEXT NOT NULL CHECK (job_type IN (` + jobTypeInClause() + `)),
				started_at       TEXT NOT NULL,
				finished_at      TEXT,
				pages_scraped    INTEGER NOT NULL DEFAULT 0,
				listings_new     INTEGER NOT NULL DEFAULT 0,
				listings_updated INTEGER NOT NULL DEFAULT 0,
				errors           INTEGER NOT NULL DEFAULT 0,
				notes            TEXT
			)`,
			`INSERT INTO scrape_log_new SELECT * FROM scrape_log`,
			`DROP TABLE scrape_log`,
			`ALTER TABLE scrape_log_new RENAME TO scrape_log`,
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func jobTypeInClause() string {
	out := ""
	for i, jt := range jobTypeValues {
		if i > 0 {
			out += ", "
		}
		out += "'" + jt + "'"
	}
	return out
}

func isDuplicateColumnErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}
