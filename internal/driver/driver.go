// Package driver re-evaluates the current prayer window on a fixed cadence
// and publishes each reading to its subscribers.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

// DefaultInterval is the evaluation cadence used when none is configured.
const DefaultInterval = 60 * time.Second

// State is the driver lifecycle state.
type State int

const (
	// Idle means no boundary data has been received yet.
	Idle State = iota
	// Active means boundary data is present and evaluations are published.
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Update is delivered to subscribers after every evaluation pass. When Err is
// set, Reading is the last good reading (zero if there never was one) and
// HasReading reports whether it is meaningful.
type Update struct {
	Reading    window.Reading
	HasReading bool
	Err        error
}

// Subscriber receives updates. It is called from the evaluation goroutine
// and must not block for long.
type Subscriber func(Update)

// Option configures a Driver.
type Option func(*Driver)

// WithClock sets the clock used for evaluations.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithInterval sets the evaluation cadence. Non-positive values are ignored.
func WithInterval(interval time.Duration) Option {
	return func(d *Driver) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// Driver holds the current boundary set and the last good reading.
type Driver struct {
	clock    Clock
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.RWMutex
	state       State
	boundaries  window.BoundarySet
	last        window.Reading
	hasReading  bool
	err         error
	subscribers []Subscriber

	// refresh wakes Run so new boundaries are evaluated without waiting a full tick.
	refresh chan struct{}
}

// New creates an idle driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		clock:    RealClock{},
		interval: DefaultInterval,
		logger:   zerolog.Nop(),
		refresh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Interval returns the evaluation cadence.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Subscribe registers s for all future updates.
func (d *Driver) Subscribe(s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, s)
}

// SetBoundaries parses raw name -> "HH:MM" times from a boundary provider and
// installs them. Malformed data is rejected: the driver keeps its last good
// reading, records the error, and reports it on every pass until valid data
// arrives.
func (d *Driver) SetBoundaries(raw map[string]string) error {
	set, err := window.ParseBoundarySet(raw)
	if err != nil {
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		d.logger.Error().Err(err).Msg("rejected boundary data")
		d.wake()
		return err
	}
	d.SetBoundarySet(set)
	return nil
}

// SetBoundarySet installs an already validated set, moving Idle to Active or
// refreshing Active in place.
func (d *Driver) SetBoundarySet(set window.BoundarySet) {
	d.mu.Lock()
	prev := d.state
	d.boundaries = set
	d.state = Active
	d.err = nil
	d.mu.Unlock()

	if prev == Idle {
		d.logger.Info().Msg("boundary data received, driver active")
	} else {
		d.logger.Debug().Msg("boundary data refreshed")
	}
	d.wake()
}

func (d *Driver) wake() {
	select {
	case d.refresh <- struct{}{}:
	default:
	}
}

// State returns the lifecycle state.
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Boundaries returns the installed boundary set and whether one exists.
func (d *Driver) Boundaries() (window.BoundarySet, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.boundaries, d.state == Active
}

// Last returns the last good reading.
func (d *Driver) Last() (window.Reading, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last, d.hasReading
}

// Err returns the current data-integrity error, if any.
func (d *Driver) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Evaluate runs one resolve-and-measure pass and publishes the result.
// It is a no-op returning false while the driver is Idle.
func (d *Driver) Evaluate() (Update, bool) {
	now := d.clock.Now()

	d.mu.Lock()
	if d.state == Idle {
		err := d.err
		d.mu.Unlock()
		if err == nil {
			return Update{}, false
		}
		u := Update{Err: err}
		d.publish(u)
		return u, true
	}

	var u Update
	if d.err != nil {
		u = Update{Reading: d.last, HasReading: d.hasReading, Err: d.err}
	} else if r, err := window.Evaluate(now, d.boundaries); err != nil {
		u = Update{Reading: d.last, HasReading: d.hasReading, Err: err}
	} else {
		d.last = r
		d.hasReading = true
		u = Update{Reading: r, HasReading: true}
	}
	d.mu.Unlock()

	if u.Err != nil {
		d.logger.Warn().Err(u.Err).Msg("evaluation refused")
	} else {
		d.logger.Debug().
			Str("prayer", u.Reading.Prayer).
			Float64("fill", u.Reading.FillPercentage).
			Int("remaining_minutes", int(u.Reading.Remaining.Duration()/time.Minute)).
			Msg("evaluated")
	}

	d.publish(u)
	return u, true
}

func (d *Driver) publish(u Update) {
	d.mu.RLock()
	subs := make([]Subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.RUnlock()

	for _, s := range subs {
		s(u)
	}
}

// Run evaluates immediately and then once per interval until ctx is
// cancelled. Installing new boundaries triggers an extra pass.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info().Dur("interval", d.interval).Msg("driver started")
	d.Evaluate()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("driver stopped")
			return nil
		case <-ticker.C:
			d.Evaluate()
		case <-d.refresh:
			d.Evaluate()
		}
	}
}
