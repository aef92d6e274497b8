// Package config provides loading and environment overlay for logpager
// configuration. Default() is the baseline; Load reads a JSON file on top of
// it and FromEnv overlays LOGPAGER_* variables.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/logpager.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{DataDir: cfg.DataDir, Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
package config
