package config

import (
	"os"
	"strconv"
)

// FromEnv overlays LOGPAGER_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("LOGPAGER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOGPAGER_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("LOGPAGER_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("LOGPAGER_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("LOGPAGER_INBOX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.InboxSize = n
		}
	}
	if v := os.Getenv("LOGPAGER_EMPTY_TEXT"); v != "" {
		cfg.EmptyText = v
	}
	if v := os.Getenv("LOGPAGER_NAME_REGEX"); v != "" {
		cfg.NameRegex = v
	}
	if v := os.Getenv("LOGPAGER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOGPAGER_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOGPAGER_EXPORT_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Export.MaxPages = n
		}
	}
	if v := os.Getenv("LOGPAGER_RETENTION_MAX_AGE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Retention.MaxAgeMs = n
		}
	}
	if v := os.Getenv("LOGPAGER_RETENTION_INTERVAL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Retention.IntervalMs = n
		}
	}
}
