package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// LoadScreens builds the screen registry from the inline definitions in
// cfg and, when set, the definitions in cfg.ScreensFile. A relative
// screens file is resolved against baseDir.
func LoadScreens(cfg *Config, baseDir string) (*screen.Registry, error) {
	defs := append([]screen.Definition(nil), cfg.Screens...)

	if cfg.ScreensFile != "" {
		path := cfg.ScreensFile
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		fromFile, err := ReadScreensFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fromFile...)
	}

	if len(defs) == 0 {
		return nil, fmt.Errorf("no screen definitions configured: set screens or screens_file")
	}
	registry, err := screen.NewRegistry(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid screen definitions: %w", err)
	}
	return registry, nil
}

// ReadScreensFile reads a YAML or JSON document whose top-level "screens"
// key lists screen definitions.
func ReadScreensFile(path string) ([]screen.Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading screens file %s: %w", path, err)
	}
	var doc struct {
		Screens []screen.Definition `mapstructure:"screens"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("error decoding screens file %s: %w", path, err)
	}
	return doc.Screens, nil
}
