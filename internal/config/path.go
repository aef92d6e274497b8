package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "logpager"

// DefaultDataDir returns the directory holding the local log store when no
// dataDir is configured. XDG_DATA_HOME wins when set; otherwise the per-user
// application data location of the host OS is used, falling back to ./data
// when the home directory is unknown.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appDirName)
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" && isDir(local) {
			return filepath.Join(local, appDirName)
		}
		return filepath.Join(homeDir, "AppData", "Local", appDirName)
	default:
		share := filepath.Join(homeDir, ".local", "share")
		if isDir(share) {
			return filepath.Join(share, appDirName)
		}
		return filepath.Join(homeDir, "."+appDirName)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
