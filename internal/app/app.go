// Package app wires the board together: config, logging, persistence, the
// session and the background loops under one supervisor.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"loadboard/internal/config"
	"loadboard/internal/eventbus"
	"loadboard/internal/interval"
	"loadboard/internal/persist"
	"loadboard/internal/runtime/supervisor"
	"loadboard/internal/schedule"
	"loadboard/internal/session"
	logx "loadboard/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store persist.Store
	sess  *session.Session
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Persistence (optional)
	var store persist.Store
	if pc, enabled, err := mapPersistConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := persist.Open(pc, log.With(logx.String("comp", "persist")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("persistence enabled", logx.String("driver", pc.Driver))
	}

	scale := interval.Day
	if raw := strings.TrimSpace(cfg.Session.DefaultScale); raw != "" {
		if sc, err := interval.ParseScale(raw); err == nil {
			scale = sc
		}
	}
	debounce, err := config.ParseDurationField("session.autosave_debounce", cfg.Session.AutosaveDebounce)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	sess := session.New(session.Options{
		Log:              log.With(logx.String("comp", "session")),
		Bus:              bus,
		Persist:          store,
		Centers:          mapCenters(cfg.Session.Centers),
		DefaultScale:     scale,
		AutosaveDebounce: debounce,
		CursorRefresh:    cfg.Session.CursorRefreshCron,
		ViewWidthPx:      float64(cfg.Session.ViewportWidth),
	})

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		sess:    sess,
	}, nil
}

// Session exposes the live board for the caller's render/event loop.
func (a *App) Session() *session.Session { return a.sess }

// Done is closed when the supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	a.sess.Load(a.sup.Context())

	a.sup.Go("session.run", a.sess.Run)

	// Debug-level event mirror for operational visibility.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// hot reload fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	a.log.Info("board started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) applyReload(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)

	for _, s := range sections {
		if s == "persist" {
			a.log.Warn("persist config changed; restart required for changes to take effect")
			break
		}
	}

	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})

	debounce, err := config.ParseDurationField("session.autosave_debounce", newCfg.Session.AutosaveDebounce)
	if err != nil {
		// the validator rejects bad durations; belt-and-braces here
		debounce = 0
	}
	a.sess.Apply(debounce, float64(newCfg.Session.ViewportWidth), mapCenters(newCfg.Session.Centers))

	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigApplied, Data: sections})
}

func (a *App) Stop(ctx context.Context) error {
	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	a.log.Info("board stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

func mapCenters(in []config.WorkCenterConfig) []schedule.WorkCenter {
	out := make([]schedule.WorkCenter, 0, len(in))
	for _, wc := range in {
		name := strings.TrimSpace(wc.Name)
		if name == "" {
			name = wc.ID
		}
		out = append(out, schedule.WorkCenter{ID: strings.TrimSpace(wc.ID), Name: name})
	}
	return out
}

func mapPersistConfig(cfg *config.Config) (persist.Config, bool, error) {
	if cfg == nil || cfg.Persist == nil {
		return persist.Config{}, false, nil
	}
	pc := cfg.Persist
	driver := strings.ToLower(strings.TrimSpace(pc.Driver))
	if driver == "" || driver == "none" {
		return persist.Config{}, false, nil
	}
	path := strings.TrimSpace(pc.Path)

	switch driver {
	case "file":
		return persist.Config{Driver: "file", Path: path}, true, nil
	case "sqlite":
		if path == "" {
			return persist.Config{}, false, fmt.Errorf("persist.path is required when persist.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("persist.busy_timeout", pc.BusyTimeout, 1*time.Second)
		if err != nil {
			return persist.Config{}, false, err
		}
		return persist.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return persist.Config{}, false, fmt.Errorf("unknown persist.driver: %s", pc.Driver)
	}
}
