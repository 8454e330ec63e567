// Package store persists the last known location and boundary times so a
// restarted process can resume the widget before its first network fetch.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("no saved state")

// Snapshot is the persisted widget state.
type Snapshot struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	City      string            `json:"city,omitempty"`
	Country   string            `json:"country,omitempty"`
	Address   string            `json:"address,omitempty"`
	Place     string            `json:"place,omitempty"` // reverse-geocoded display name
	Timezone  string            `json:"timezone"`
	Date      string            `json:"date"` // YYYY-MM-DD the times apply to
	Times     map[string]string `json:"times"`
	SavedAt   time.Time         `json:"saved_at"`
}

// Location returns the saved timezone, falling back to the local zone.
func (s *Snapshot) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Store loads and saves snapshots.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Path      string // file backend
	RedisAddr string // redis backend
	RedisKey  string
}

// Open returns the configured backend. An empty Backend means file.
func Open(cfg Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFile(cfg.Path)
	case BackendRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisKey, logger)
	default:
		return nil, fmt.Errorf("unknown state backend %q (want %s or %s)", cfg.Backend, BackendFile, BackendRedis)
	}
}
