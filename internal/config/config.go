// Package config aggregates HTTP client and store settings behind a single
// object injected into the orchestrator constructor, rather than read from
// package globals at call sites.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config aggregates the HTTP client, store, and crawl knobs. Zero values
// are never used directly — Load always starts from Defaults() and
// overlays whatever the JSON file sets.
type Config struct {
	BaseURL     string `json:"baseUrl"`
	IndexPath   string `json:"indexPath"`
	HistoryPath string `json:"historyPath"`

	// RATE LIMITING / RETRY
	MinDelaySeconds float64 `json:"minDelay"`
	MaxDelaySeconds float64 `json:"maxDelay"`
	MaxRetries      int     `json:"maxRetries"`
	RetryBackoff    float64 `json:"retryBackoff"`
	TimeoutSeconds  int     `json:"timeout"`
	UserAgent       string  `json:"userAgent"`

	// STORE / PROGRESS FILE LOCATIONS
	DataPath string `json:"dataPath"`

	MaxHearingsPerTribunal int `json:"maxHearingsPerTribunal"`

	// PROGRESS STALENESS THRESHOLD
	StaleTimeoutSeconds int `json:"staleTimeout"`
}

// Defaults returns the settings a fresh installation runs with.
func Defaults() *Config {
	return &Config{
		BaseURL:                "https://www.licitor.com",
		IndexPath:              "/ventes-aux-encheres-immobilieres/france.html",
		HistoryPath:            "/historique-des-adjudications.html",
		MinDelaySeconds:        1.5,
		MaxDelaySeconds:        3.0,
		MaxRetries:             3,
		RetryBackoff:           2.0,
		TimeoutSeconds:         30,
		UserAgent:              "Mozilla/5.0 (compatible; EnchImmoBot/1.0; +mailto:contact@encheres-immo.local)",
		DataPath:               "./data",
		MaxHearingsPerTribunal: 200,
		StaleTimeoutSeconds:    120,
	}
}

// Load reads a JSON config file, overlaying it onto Defaults(). A missing
// or undecodable file is returned as an error; the CLI logs it and runs on
// Defaults().
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}
	cfg.DataPath = filepath.Clean(cfg.DataPath)
	return cfg, nil
}

// Save writes the config back out as indented JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySeconds * float64(time.Second))
}

func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySeconds * float64(time.Second))
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutSeconds) * time.Second
}

// DBPath is the SQLite file location under DataPath.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataPath, "encheres.db")
}

func (c *Config) ProgressPath() string {
	return filepath.Join(c.DataPath, "scrape_progress.json")
}

func (c *Config) CancelPath() string {
	return filepath.Join(c.DataPath, "scrape_cancel.flag")
}
