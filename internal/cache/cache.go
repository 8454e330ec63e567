// Package cache keeps API results on disk so repeated invocations (a tmux
// status line refreshes every few seconds) do not hit the network.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/geo"
)

const (
	prayerCacheFile   = "timings_%s.json"  // keyed by hash
	calendarCacheFile = "calendar_%s.json" // keyed by hash
	geoCacheFile      = "geolocation.json"
	geoTTL            = 24 * time.Hour
)

// Cache provides file-based caching for prayer times and geolocation data.
type Cache struct {
	dir string
}

// Key holds every request parameter that changes the prayer times returned.
// Exactly one of coordinates, City/Country or Address is normally set.
type Key struct {
	Lat     float64
	Lon     float64
	City    string
	Country string
	Address string
	Method  int
	School  int
}

func (k Key) String() string {
	return fmt.Sprintf("%.6f|%.6f|%s|%s|%s|%d|%d", k.Lat, k.Lon, k.City, k.Country, k.Address, k.Method, k.School)
}

// PrayerCacheEntry stores a day's prayer times along with metadata for validation.
type PrayerCacheEntry struct {
	Date    string      `json:"date"` // YYYY-MM-DD
	Method  int         `json:"method"`
	School  int         `json:"school"`
	Timings api.Timings `json:"timings"`
	Meta    api.Meta    `json:"meta"`
}

// CalendarCacheEntry stores a month of prayer times.
type CalendarCacheEntry struct {
	Year   int        `json:"year"`
	Month  int        `json:"month"`
	Method int        `json:"method"`
	School int        `json:"school"`
	Days   []api.Data `json:"days"`
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// New creates a Cache rooted at the given directory.
// If dir is empty, it defaults to ~/.cache/prayer-widget/.
func New(dir string) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache", "prayer-widget")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// hashKey builds a short deterministic hash so that different
// locations/methods/schools get separate cache files.
func hashKey(scope string, k Key) string {
	h := sha256.Sum256([]byte(scope + "|" + k.String()))
	return fmt.Sprintf("%x", h[:8]) // 16 hex chars is plenty for uniqueness
}

// LoadTimings attempts to read cached prayer times for the given day.
// Returns nil if the cache is missing or stale (wrong date).
func (c *Cache) LoadTimings(date time.Time, k Key) *PrayerCacheEntry {
	dateStr := date.Format("2006-01-02")

	var entry PrayerCacheEntry
	if !c.readJSON(fmt.Sprintf(prayerCacheFile, hashKey(dateStr, k)), &entry) {
		return nil
	}

	// Validate the date matches -- stale cache for a previous day is useless.
	if entry.Date != dateStr {
		return nil
	}

	return &entry
}

// SaveTimings writes a day of prayer times to the cache.
func (c *Cache) SaveTimings(date time.Time, k Key, resp *api.Response) error {
	dateStr := date.Format("2006-01-02")

	entry := PrayerCacheEntry{
		Date:    dateStr,
		Method:  k.Method,
		School:  k.School,
		Timings: resp.Data.Timings,
		Meta:    resp.Data.Meta,
	}
	return c.writeJSON(fmt.Sprintf(prayerCacheFile, hashKey(dateStr, k)), entry)
}

// LoadCalendar attempts to read a cached month of prayer times.
// Returns nil if the cache is missing or belongs to another month.
func (c *Cache) LoadCalendar(year, month int, k Key) *CalendarCacheEntry {
	scope := fmt.Sprintf("%04d-%02d", year, month)

	var entry CalendarCacheEntry
	if !c.readJSON(fmt.Sprintf(calendarCacheFile, hashKey(scope, k)), &entry) {
		return nil
	}
	if entry.Year != year || entry.Month != month || len(entry.Days) == 0 {
		return nil
	}
	return &entry
}

// SaveCalendar writes a month of prayer times to the cache.
func (c *Cache) SaveCalendar(year, month int, k Key, resp *api.CalendarResponse) error {
	scope := fmt.Sprintf("%04d-%02d", year, month)

	entry := CalendarCacheEntry{
		Year:   year,
		Month:  month,
		Method: k.Method,
		School: k.School,
		Days:   resp.Data,
	}
	return c.writeJSON(fmt.Sprintf(calendarCacheFile, hashKey(scope, k)), entry)
}

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (c *Cache) LoadGeo() *geo.Location {
	var entry GeoCacheEntry
	if !c.readJSON(geoCacheFile, &entry) {
		return nil
	}

	if time.Since(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a geolocation result to the cache.
func (c *Cache) SaveGeo(loc *geo.Location) error {
	return c.writeJSON(geoCacheFile, GeoCacheEntry{
		Location: *loc,
		CachedAt: time.Now(),
	})
}

// readJSON decodes name into out, reporting false for a missing or corrupt file.
func (c *Cache) readJSON(name string, out any) bool {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Cache) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.WriteFile(filepath.Join(c.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}
