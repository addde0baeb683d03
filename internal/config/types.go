package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Persist controls the optional persistence layer.
	// Nil or an empty driver means the board runs purely in memory.
	Persist *PersistConfig `json:"persist,omitempty"`

	Session SessionConfig `json:"session"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PersistConfig selects the persistence driver.
//
// Example:
//
//	"persist": { "driver": "file", "path": "./loadboard_store" }
type PersistConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SessionConfig controls the scheduling session.
//
// All durations are Go duration strings (e.g. "500ms", "2s").
//
// Defaults (when fields are omitted/zero):
//   - default_scale: "day"
//   - autosave_debounce: "2s"
//   - cursor_refresh_cron: "0 0 * * *" (midnight)
type SessionConfig struct {
	// DefaultScale is the timeline scale used when no saved settings exist:
	// "day", "week" or "month".
	DefaultScale string `json:"default_scale,omitempty"`

	// AutosaveDebounce coalesces store mutations before they are flushed
	// to the persistence layer. "0s" flushes every mutation immediately.
	AutosaveDebounce string `json:"autosave_debounce,omitempty"`

	// CursorRefreshCron re-snaps a wall-clock-tracking cursor so the
	// current-period highlight stays correct across day boundaries.
	CursorRefreshCron string `json:"cursor_refresh_cron,omitempty"`

	// ViewportWidth is the renderer width in pixels used for pointer math.
	ViewportWidth int `json:"viewport_width,omitempty"`

	// Centers is the fixed set of work centers created at startup.
	Centers []WorkCenterConfig `json:"centers"`
}

type WorkCenterConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks cross-field constraints that the strict decoder cannot.
// It is installed as the watch validator so a bad edit never reaches the
// running session.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Session.DefaultScale)) {
	case "", "day", "week", "month":
	default:
		return fmt.Errorf("session.default_scale: unknown scale %q", cfg.Session.DefaultScale)
	}
	if _, err := ParseDurationField("session.autosave_debounce", cfg.Session.AutosaveDebounce); err != nil {
		return err
	}
	if spec := strings.TrimSpace(cfg.Session.CursorRefreshCron); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("session.cursor_refresh_cron: %w", err)
		}
	}
	if cfg.Session.ViewportWidth < 0 {
		return fmt.Errorf("session.viewport_width: must be >= 0")
	}
	seen := make(map[string]struct{}, len(cfg.Session.Centers))
	for i, wc := range cfg.Session.Centers {
		id := strings.TrimSpace(wc.ID)
		if id == "" {
			return fmt.Errorf("session.centers[%d]: id is required", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("session.centers[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
	}
	if cfg.Persist != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Persist.Driver)) {
		case "", "none", "file", "sqlite":
		default:
			return fmt.Errorf("persist.driver: unknown driver %q", cfg.Persist.Driver)
		}
		if _, err := ParseDurationField("persist.busy_timeout", cfg.Persist.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
