package store

import "time"

// Config holds configuration for the Store.
type Config struct {
	// ReadTimeout bounds every SELECT, client side and via USING TIMEOUT.
	// Default: 3s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds every INSERT, UPDATE, DELETE and batch.
	// Default: 3s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ScanDays is how many day buckets a paginated scan visits before giving up.
	// Default: 30
	// Max: 366
	ScanDays int `yaml:"scan_days"`

	// FloorDay is the oldest day bucket a scan will visit.
	// Default: 18993 (2022-01-01)
	FloorDay int32 `yaml:"floor_day"`

	// BypassCache adds BYPASS CACHE to list scans.
	// Default: true
	BypassCache bool `yaml:"bypass_cache"`

	// MaxPageSize caps the page size callers can request.
	// Default: 1000
	MaxPageSize int `yaml:"max_page_size"`
}

const (
	defaultTimeout  = 3 * time.Second
	minTimeout      = 100 * time.Millisecond
	maxTimeout      = time.Minute
	defaultScanDays = 30
	maxScanDays     = 366
	defaultFloorDay = 18993
	defaultMaxPage  = 1000
)

// DefaultConfig returns the defaults used in production.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  defaultTimeout,
		WriteTimeout: defaultTimeout,
		ScanDays:     defaultScanDays,
		FloorDay:     defaultFloorDay,
		BypassCache:  true,
		MaxPageSize:  defaultMaxPage,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	c.ReadTimeout = clampTimeout(c.ReadTimeout)
	c.WriteTimeout = clampTimeout(c.WriteTimeout)
	if c.ScanDays < 1 {
		c.ScanDays = defaultScanDays
	}
	if c.ScanDays > maxScanDays {
		c.ScanDays = maxScanDays
	}
	if c.FloorDay <= 0 {
		c.FloorDay = defaultFloorDay
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = defaultMaxPage
	}
}

func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return defaultTimeout
	case d < minTimeout:
		return minTimeout
	case d > maxTimeout:
		return maxTimeout
	}
	return d
}
