package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Settings are the tool defaults read from an INI file. Command-line flags
// take precedence over every field.
//
//	[catalog]
//	path = catalogs/m21.yaml
//
//	[log]
//	level = info
//
//	[display]
//	mode = values
//
//	[backup]
//	dir = backups
//
//	[web]
//	port = 8080
type Settings struct {
	CatalogPath string
	LogLevel    string
	DisplayMode string
	BackupDir   string
	Port        int
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:    "warn",
		DisplayMode: "values",
		Port:        8080,
	}
}

// LoadSettings reads path over DefaultSettings. A missing file is not an
// error and yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return s, fmt.Errorf("config: could not load settings %q: %w", path, err)
	}

	s.CatalogPath = cfg.Section("catalog").Key("path").MustString(s.CatalogPath)
	s.LogLevel = cfg.Section("log").Key("level").MustString(s.LogLevel)
	s.BackupDir = cfg.Section("backup").Key("dir").MustString(s.BackupDir)
	s.Port = cfg.Section("web").Key("port").MustInt(s.Port)

	mode := cfg.Section("display").Key("mode").In(s.DisplayMode, []string{"values", "heatmap", "symbols"})
	s.DisplayMode = mode

	if s.Port <= 0 || s.Port > 65535 {
		return s, fmt.Errorf("config: invalid web port %d", s.Port)
	}
	return s, nil
}
