package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sysbridge/internal/appevents"
	"sysbridge/internal/common/fsutil"
	"sysbridge/internal/config"
	"sysbridge/internal/events"
	"sysbridge/internal/eventstream"
	"sysbridge/internal/httpapi"
	"sysbridge/internal/platform"
	"sysbridge/internal/pps"
	"sysbridge/internal/ppsevents"
	"sysbridge/internal/system"
	"sysbridge/internal/trigger"
	"sysbridge/internal/whitelist"
)

// eventFeature is the whitelist feature an origin needs to open the event stream.
const eventFeature = "blackberry.event"

type app struct {
	watcher   *pps.Watcher
	subsystem *events.Subsystem
	notifier  *platform.Notifier
	hub       *eventstream.Hub
	svc       *system.Service
}

func build(cfg config.Config, log zerolog.Logger) (*app, error) {
	store, err := pps.NewStore(cfg.PPSRoot)
	if err != nil {
		return nil, fmt.Errorf("property store: %w", err)
	}
	if !fsutil.PathExists(store.Root) {
		log.Warn().Str("pps_root", store.Root).Msg("property store root does not exist; objects will read as missing")
	}
	wl, err := whitelist.New(cfg.Whitelist)
	if err != nil {
		return nil, err
	}
	eval, err := trigger.NewEvaluator(trigger.DefaultTable(), log.With().Str("component", "trigger").Logger())
	if err != nil {
		return nil, err
	}
	watcher := pps.NewWatcher(store, time.Duration(cfg.PollIntervalMS)*time.Millisecond, log.With().Str("component", "watcher").Logger())
	host := platform.NewPPSHost(store, platform.Paths{
		Device: cfg.Host.DevicePath,
		Locale: cfg.Host.LocalePath,
		Font:   cfg.Host.FontPath,
	})
	bus := events.NewBus()
	sub := events.NewSubsystem(log.With().Str("component", "events").Logger())
	hub := eventstream.NewHub(sub, originChecker(wl), log.With().Str("component", "eventstream").Logger())

	ppsCtx := ppsevents.New(store, watcher, eval, log.With().Str("component", "ppsevents").Logger())
	svc := system.New(system.Config{
		Store:         store,
		Host:          host,
		Whitelist:     wl,
		SandboxRoot:   cfg.SandboxRoot,
		TimezonePath:  cfg.TimezonePath,
		TimezonesFile: cfg.TimezonesFile,
		LoadEvents:    func() (events.Registrar, error) { return sub, nil },
		Actions:       system.Actions(ppsCtx, appevents.New(bus), hub),
		Log:           log.With().Str("component", "system").Logger(),
	})
	return &app{
		watcher:   watcher,
		subsystem: sub,
		notifier:  platform.NewNotifier(host, bus, log.With().Str("component", "platform").Logger()),
		hub:       hub,
		svc:       svc,
	}, nil
}

// originChecker admits requests without an Origin header (native clients)
// and browser origins whitelisted for the event feature.
func originChecker(wl *whitelist.Whitelist) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || wl.IsFeatureAllowed(origin, eventFeature)
	}
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	a, err := build(cfg, log)
	if err != nil {
		return err
	}
	if err := a.svc.RegisterEvents(); err != nil {
		log.Warn().Err(err).Msg("event registration failed; /readyz will report not ready")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watcher.Run(runCtx)
	go a.hub.Run(runCtx)
	stopNotifier := a.notifier.Start(a.watcher)
	defer stopNotifier()
	defer a.subsystem.Close()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a.svc, a.hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("pps_root", cfg.PPSRoot).Msg("sysbridged listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	log.Info().Msg("sysbridged stopped")
	return nil
}

func printTimezones(w io.Writer, a *app) error {
	tz, err := a.svc.CurrentTimezone()
	if err != nil {
		return err
	}
	if tz != nil {
		fmt.Fprintf(w, "current: %s\n", *tz)
	} else {
		fmt.Fprintln(w, "current: (unset)")
	}
	zones, err := a.svc.Timezones()
	if err != nil {
		return err
	}
	for _, z := range zones {
		fmt.Fprintln(w, z)
	}
	return nil
}

func printCapabilities(w io.Writer) {
	for _, c := range system.SupportedCapabilities {
		fmt.Fprintln(w, c)
	}
}
