package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/cache"
	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/geo"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// locationMode describes how the user specified their location.
type locationMode int

const (
	locationCoords locationMode = iota
	locationCity
	locationAddress
	locationAuto
)

// resolvedLocation holds the result of location resolution.
type resolvedLocation struct {
	Mode     locationMode
	Lat, Lon float64
	City     string
	Country  string
	Address  string
	Timezone string // optional hint from geo-detection
}

// cacheKey identifies this location's timings in the cache.
func (l resolvedLocation) cacheKey(method, school int) cache.Key {
	k := cache.Key{Method: method, School: school}
	switch l.Mode {
	case locationCity:
		k.City, k.Country = l.City, l.Country
	case locationAddress:
		k.Address = l.Address
	default:
		k.Lat, k.Lon = l.Lat, l.Lon
	}
	return k
}

// fetchResult holds the data returned from a prayer times fetch.
type fetchResult struct {
	Timings  api.Timings
	Meta     api.Meta
	DateInfo api.DateInfo
}

// errNoLocation is returned when nothing is configured and detection fails.
var errNoLocation = errors.New("no location specified and auto-detection failed")

// resolveLocation determines the effective location.
// Priority: coordinates > city > address > cached geolocation > IP auto-detect.
func resolveLocation(ctx context.Context, cfg *config.Config, c *cache.Cache) (resolvedLocation, error) {
	switch {
	case cfg.Latitude != 0 || cfg.Longitude != 0:
		return resolvedLocation{Mode: locationCoords, Lat: cfg.Latitude, Lon: cfg.Longitude}, nil
	case cfg.City != "":
		if cfg.Country == "" {
			return resolvedLocation{}, fmt.Errorf("--country is required when using --city")
		}
		return resolvedLocation{Mode: locationCity, City: cfg.City, Country: cfg.Country}, nil
	case cfg.Address != "":
		return resolvedLocation{Mode: locationAddress, Address: cfg.Address}, nil
	}

	if c != nil {
		if cached := c.LoadGeo(); cached != nil {
			return detectedLocation(cached), nil
		}
	}

	detected, err := geo.DetectLocation(ctx)
	if err != nil {
		return resolvedLocation{}, fmt.Errorf("%w: %w", errNoLocation, err)
	}
	if c != nil {
		if err := c.SaveGeo(detected); err != nil {
			logger.Debug().Err(err).Msg("could not cache geolocation")
		}
	}
	return detectedLocation(detected), nil
}

func detectedLocation(g *geo.Location) resolvedLocation {
	return resolvedLocation{
		Mode:     locationAuto,
		Lat:      g.Latitude,
		Lon:      g.Longitude,
		City:     g.City,
		Country:  g.Country,
		Timezone: g.Timezone,
	}
}

// session bundles what every data-fetching command needs: merged config,
// cache, resolved location and the API client.
type session struct {
	cfg     *config.Config
	cache   *cache.Cache
	client  *api.Client
	loc     resolvedLocation
	method  int
	school  int
	timeFmt string // Go layout, "15:04" or "3:04 PM"
	prayers []string
}

// newAPIClient is a variable so tests can point sessions at a stub server.
var newAPIClient = api.NewClient

// newSession resolves the location in cfg and prepares the cache and client.
func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	s := &session{
		cfg:     cfg,
		client:  newAPIClient(),
		method:  cfg.MethodOrDefault(-1),
		school:  cfg.SchoolOrDefault(-1),
		timeFmt: goTimeFormat(cfg.TimeFormat),
		prayers: prayer.DefaultPrayerNames,
	}
	if cfg.Prayers != "" {
		s.prayers = config.SplitPrayers(cfg.Prayers)
	}

	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		// Cache init failure is non-fatal; we just skip caching.
		logger.Warn().Err(err).Msg("cache disabled")
	} else {
		s.cache = c
	}

	s.loc, err = resolveLocation(ctx, cfg, s.cache)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func goTimeFormat(timeFormat string) string {
	if timeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// fetchTimings returns prayer timings for the given date, using the cache when available.
func (s *session) fetchTimings(ctx context.Context, date time.Time) (*fetchResult, error) {
	key := s.loc.cacheKey(s.method, s.school)

	if s.cache != nil {
		if entry := s.cache.LoadTimings(date, key); entry != nil {
			logger.Debug().Str("date", entry.Date).Msg("timings from cache")
			return &fetchResult{Timings: entry.Timings, Meta: entry.Meta}, nil
		}
	}

	var (
		resp *api.Response
		err  error
	)
	switch s.loc.Mode {
	case locationCity:
		resp, err = s.client.FetchByCity(ctx, date, s.loc.City, s.loc.Country, s.method, s.school)
	case locationAddress:
		resp, err = s.client.FetchByAddress(ctx, date, s.loc.Address, s.method, s.school)
	default:
		resp, err = s.client.FetchByCoordinates(ctx, date, s.loc.Lat, s.loc.Lon, s.method, s.school)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SaveTimings(date, key, resp); err != nil {
			logger.Debug().Err(err).Msg("could not cache timings")
		}
	}

	return &fetchResult{
		Timings:  resp.Data.Timings,
		Meta:     resp.Data.Meta,
		DateInfo: resp.Data.Date,
	}, nil
}

// zone returns the observer's timezone: the geo-detection hint if there is
// one, otherwise the timezone reported by the API.
func (s *session) zone(apiTimezone string) (*time.Location, error) {
	tz := s.loc.Timezone
	if tz == "" {
		tz = apiTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// today fetches the timings for now's date and re-anchors now to the
// observer's timezone, so comparisons work when querying a location whose
// timezone differs from the machine's.
func (s *session) today(ctx context.Context, now time.Time) (*fetchResult, time.Time, error) {
	if s.loc.Timezone != "" {
		if tzLoc, err := time.LoadLocation(s.loc.Timezone); err == nil {
			now = now.In(tzLoc)
		}
	}

	result, err := s.fetchTimings(ctx, now)
	if err != nil {
		return nil, now, err
	}
	tzLoc, err := s.zone(result.Meta.Timezone)
	if err != nil {
		return nil, now, err
	}
	return result, now.In(tzLoc), nil
}

// placeLabel names the location for display, e.g. "Riyadh, Saudi Arabia".
// It falls back to the address, then to coordinates.
func (s *session) placeLabel(meta api.Meta) string {
	return buildLocationStr(s.loc, &fetchResult{Meta: meta})
}

// buildLocationStr builds a "City, Country" string from available data.
func buildLocationStr(loc resolvedLocation, result *fetchResult) string {
	if loc.City != "" && loc.Country != "" {
		return loc.City + ", " + loc.Country
	}
	if loc.Address != "" {
		return loc.Address
	}
	return fmt.Sprintf("%.4f, %.4f", result.Meta.Latitude, result.Meta.Longitude)
}

// reversePlace looks up a display name for coordinate-only locations.
// Failures are logged and yield "".
func (s *session) reversePlace(ctx context.Context, meta api.Meta) string {
	if s.loc.Mode != locationCoords {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	place, err := geo.ReverseGeocode(ctx, meta.Latitude, meta.Longitude)
	if err != nil {
		logger.Debug().Err(err).Msg("reverse geocoding failed")
		return ""
	}
	if place.City != "" && place.Country != "" {
		return place.City + ", " + place.Country
	}
	return place.DisplayName
}
