package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
	"github.com/smokyabdulrahman/prayer-widget/internal/publish"
	"github.com/smokyabdulrahman/prayer-widget/internal/server"
	"github.com/smokyabdulrahman/prayer-widget/internal/store"
	"github.com/smokyabdulrahman/prayer-widget/internal/telemetry"
)

// serveFlags maps serve's local flags to the config keys they override.
var serveFlags = map[string]string{
	"listen":        "listen_addr",
	"interval":      "interval",
	"mqtt-broker":   "mqtt_broker",
	"mqtt-topic":    "mqtt_topic",
	"state-backend": "state_backend",
	"state-path":    "state_path",
	"redis-addr":    "redis_addr",
	"redis-key":     "redis_key",
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live readings over HTTP, WebSocket, Prometheus and MQTT",
		Long: "Run the evaluation driver and expose every reading:\n\n" +
			"  GET  /api/v1/reading      current reading as JSON\n" +
			"  GET  /api/v1/boundaries   installed prayer times\n" +
			"  PUT  /api/v1/boundaries   install prayer times {\"times\":{\"Fajr\":\"05:17\",...}}\n" +
			"  GET  /ws                  WebSocket stream of readings\n" +
			"  GET  /metrics             Prometheus metrics\n" +
			"  GET  /healthz             liveness\n\n" +
			"Readings are also published to MQTT when a broker is configured. The last\n" +
			"prayer times are saved so a restart is active before the first fetch.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	f := cmd.Flags()
	f.String("listen", "", "HTTP listen address (default 127.0.0.1:8765)")
	f.String("interval", "", "Evaluation interval, e.g. 30s (default 60s)")
	f.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled when empty)")
	f.String("mqtt-topic", "", "MQTT topic for readings (default prayer-widget/reading)")
	f.String("state-backend", "", "Where to save state: file or redis (default file)")
	f.String("state-path", "", "State file for the file backend (default ~/.local/state/prayer-widget/state.json)")
	f.String("redis-addr", "", "Redis address for the redis backend, e.g. localhost:6379")
	f.String("redis-key", "", "Redis key holding the saved state (default prayer-widget:state)")

	return cmd
}

// overrideFromFlags copies explicitly set local flags onto their config keys,
// validating them the same way `config set` does.
func overrideFromFlags(cmd *cobra.Command, cfg *config.Config, keys map[string]string) error {
	for flagName, key := range keys {
		f := cmd.Flags().Lookup(flagName)
		if f == nil || !f.Changed {
			continue
		}
		if err := cfg.Set(key, f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", flagName, err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := effectiveConfig(cmd)
	if err := overrideFromFlags(cmd, cfg, serveFlags); err != nil {
		return err
	}

	st, err := store.Open(store.Config{
		Backend:   cfg.StateBackend,
		Path:      cfg.StatePath,
		RedisAddr: cfg.RedisAddr,
		RedisKey:  cfg.RedisKey,
	}, logger.With().Str("component", "store").Logger())
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer st.Close()

	metrics := telemetry.New()
	zone := newZoneClock(time.Local)
	d := driver.New(
		driver.WithClock(zone),
		driver.WithInterval(cfg.IntervalOrDefault(driver.DefaultInterval)),
		driver.WithLogger(logger.With().Str("component", "driver").Logger()),
	)
	d.Subscribe(metrics.Observe)

	srv := server.New(d, server.WithMetrics(metrics), server.WithLogger(logger))

	restoreState(ctx, st, d, zone, srv)

	if cfg.MQTTBroker != "" {
		pub, err := publish.Connect(cfg.MQTTBroker, cfg.MQTTTopic, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		d.Subscribe(pub.Observe)
	}

	go func() {
		s, err := newSession(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("no location, waiting for PUT /api/v1/boundaries")
			return
		}
		s.dailyFetch(ctx, func(day time.Time, res *fetchResult, err error) {
			metrics.FetchDone(err)
			if err != nil {
				logger.Warn().Err(err).Dur("retry_in", retryDelay).Msg("failed to fetch prayer times")
				return
			}
			zone.Set(day.Location())
			if err := d.SetBoundaries(res.Timings.Windows()); err != nil {
				return
			}

			place := s.reversePlace(ctx, res.Meta)
			if place == "" {
				place = s.placeLabel(res.Meta)
			}
			srv.SetPlace(place)

			if err := st.Save(ctx, s.snapshot(day, res, place)); err != nil {
				logger.Warn().Err(err).Msg("failed to save state")
			}
		})
	}()

	go func() {
		_ = d.Run(ctx)
	}()

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

// restoreState installs saved prayer times so the driver is active before
// the first fetch. Times from an earlier day are still used: they drift by
// a minute or two per day and are replaced as soon as a fetch succeeds.
func restoreState(ctx context.Context, st store.Store, d *driver.Driver, zone *zoneClock, srv *server.Server) {
	snap, err := st.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load saved state")
		return
	}

	loc := snap.Location()
	zone.Set(loc)
	if err := d.SetBoundaries(snap.Times); err != nil {
		return
	}
	srv.SetPlace(snap.Place)

	stale := snap.Date != time.Now().In(loc).Format(time.DateOnly)
	level := zerolog.InfoLevel
	if stale {
		level = zerolog.WarnLevel
	}
	logger.WithLevel(level).
		Str("date", snap.Date).
		Str("timezone", loc.String()).
		Bool("stale", stale).
		Msg("restored saved prayer times")
}

// snapshot captures a successful fetch for restoreState.
func (s *session) snapshot(day time.Time, res *fetchResult, place string) *store.Snapshot {
	return &store.Snapshot{
		Latitude:  res.Meta.Latitude,
		Longitude: res.Meta.Longitude,
		City:      s.loc.City,
		Country:   s.loc.Country,
		Address:   s.loc.Address,
		Place:     place,
		Timezone:  day.Location().String(),
		Date:      day.Format(time.DateOnly),
		Times:     res.Timings.Windows(),
		SavedAt:   time.Now().UTC(),
	}
}
