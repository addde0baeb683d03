package config

import (
	"reflect"
	"sort"
	"strings"

	logx "loadboard/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// structured attrs suitable for logging the reload at info level.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 3)
	attrs := make([]logx.Field, 0, 12)

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Persist (nil means disabled)
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldCfg.Persist != nil {
		oDriver = strings.TrimSpace(oldCfg.Persist.Driver)
		oBusy = strings.TrimSpace(oldCfg.Persist.BusyTimeout)
		oPathSet = strings.TrimSpace(oldCfg.Persist.Path) != ""
	}
	if newCfg.Persist != nil {
		nDriver = strings.TrimSpace(newCfg.Persist.Driver)
		nBusy = strings.TrimSpace(newCfg.Persist.BusyTimeout)
		nPathSet = strings.TrimSpace(newCfg.Persist.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "persist")
		attrs = append(attrs,
			logx.String("persist.driver", nDriver),
			logx.Bool("persist.path_set", nPathSet),
			logx.String("persist.busy_timeout", nBusy),
		)
	}

	// Session
	if !reflect.DeepEqual(oldCfg.Session, newCfg.Session) {
		changed = append(changed, "session")
		attrs = append(attrs,
			logx.String("session.default_scale", strings.TrimSpace(newCfg.Session.DefaultScale)),
			logx.String("session.autosave_debounce", strings.TrimSpace(newCfg.Session.AutosaveDebounce)),
			logx.String("session.cursor_refresh_cron", strings.TrimSpace(newCfg.Session.CursorRefreshCron)),
			logx.Int("session.viewport_width", newCfg.Session.ViewportWidth),
			logx.Int("session.center_count", len(newCfg.Session.Centers)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
