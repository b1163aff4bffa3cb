package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding script options
const EnvPrefix = "TERMYNAL"

// ScriptExtensions contains the file extensions recognised as scripts
var ScriptExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".toml": true,
}

// Script is a loaded script file
type Script struct {
	Name   string // file name without extension
	Path   string
	Config *Config
}

// ConfigLoader handles loading and validation of animation scripts
type ConfigLoader struct {
	logger     *logrus.Logger
	fs         afero.Fs
	scriptsDir string
}

// NewConfigLoader creates a new script loader reading from the OS filesystem
func NewConfigLoader(logger *logrus.Logger, scriptsDir string) *ConfigLoader {
	return NewConfigLoaderFs(logger, afero.NewOsFs(), scriptsDir)
}

// NewConfigLoaderFs creates a new script loader over the given filesystem
func NewConfigLoaderFs(logger *logrus.Logger, fs afero.Fs, scriptsDir string) *ConfigLoader {
	return &ConfigLoader{
		logger:     logger,
		fs:         fs,
		scriptsDir: scriptsDir,
	}
}

// newViper builds a viper instance for a single script file with defaults
// and environment overrides applied
func (cl *ConfigLoader) newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetFs(cl.fs)
	v.SetConfigFile(path)

	defaults := DefaultConfig()
	v.SetDefault("title", defaults.Title)
	v.SetDefault("theme", defaults.Theme)
	v.SetDefault("startDelay", defaults.StartDelay)
	v.SetDefault("typeDelay", defaults.TypeDelay)
	v.SetDefault("lineDelay", defaults.LineDelay)
	v.SetDefault("cursor", defaults.Cursor)
	v.SetDefault("autoStart", defaults.AutoStart)
	v.SetDefault("loop", defaults.Loop)
	v.SetDefault("showControls", defaults.ShowControls)
	v.SetDefault("highlightSyntax", defaults.HighlightSyntax)
	v.SetDefault("copyable", defaults.Copyable)
	v.SetDefault("resizable", defaults.Resizable)
	v.SetDefault("fullscreen", defaults.Fullscreen)
	v.SetDefault("defaultPrompt", defaults.DefaultPrompt)
	v.SetDefault("defaultPromptColor", defaults.DefaultPromptColor)
	v.SetDefault("height", defaults.Height)
	v.SetDefault("width", defaults.Width)
	v.SetDefault("lazyLoading", defaults.LazyLoading)
	v.SetDefault("intersectionThreshold", defaults.IntersectionThreshold)
	v.SetDefault("rootMargin", defaults.RootMargin)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return v
}

// decode unmarshals and validates the configuration held by v
func (cl *ConfigLoader) decode(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse script '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("script validation failed for '%s': %w", path, err)
	}

	return cfg, nil
}

// LoadScript loads and validates a script file
func (cl *ConfigLoader) LoadScript(path string) (*Config, error) {
	cl.logger.WithField("file", path).Debug("Loading script")

	v := cl.newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read script '%s': %w", path, err)
	}

	cfg, err := cl.decode(v, path)
	if err != nil {
		return nil, err
	}

	cl.logger.WithFields(logrus.Fields{
		"file":  path,
		"title": cfg.Title,
		"lines": len(cfg.Lines),
	}).Info("Script loaded successfully")

	return cfg, nil
}

// DiscoverScripts scans the scripts directory and loads every valid script
func (cl *ConfigLoader) DiscoverScripts() ([]*Script, error) {
	cl.logger.WithField("dir", cl.scriptsDir).Info("Discovering scripts")

	if _, err := cl.fs.Stat(cl.scriptsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("scripts directory '%s' does not exist", cl.scriptsDir)
	}

	var scripts []*Script
	var errors []string

	err := afero.Walk(cl.fs, cl.scriptsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		if info.IsDir() || !ScriptExtensions[ext] {
			return nil
		}

		cfg, err := cl.LoadScript(path)
		if err != nil {
			errors = append(errors, err.Error())
			cl.logger.WithError(err).WithField("file", path).Error("Script validation failed")
			return nil // Continue processing other files
		}

		scripts = append(scripts, &Script{
			Name:   strings.TrimSuffix(info.Name(), filepath.Ext(info.Name())),
			Path:   path,
			Config: cfg,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan scripts directory: %w", err)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("script validation failed:\n%s", strings.Join(errors, "\n"))
	}

	cl.logger.WithField("count", len(scripts)).Info("Script discovery completed")
	return scripts, nil
}

// FindScriptByName finds a script by file name or title; exact matches win
// over partial ones
func (cl *ConfigLoader) FindScriptByName(scripts []*Script, name string) (*Script, error) {
	var matches []*Script

	for _, s := range scripts {
		if strings.EqualFold(s.Name, name) || strings.EqualFold(s.Config.Title, name) {
			matches = append(matches, s)
		}
	}

	if len(matches) == 0 {
		lowerName := strings.ToLower(name)
		for _, s := range scripts {
			if strings.Contains(strings.ToLower(s.Name), lowerName) ||
				strings.Contains(strings.ToLower(s.Config.Title), lowerName) {
				matches = append(matches, s)
			}
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no script found matching '%s'", name)
	}

	if len(matches) > 1 {
		var names []string
		for _, m := range matches {
			names = append(names, m.Name)
		}
		return nil, fmt.Errorf("multiple scripts found matching '%s': %s", name, strings.Join(names, ", "))
	}

	return matches[0], nil
}

// Watch reloads the script at path whenever it changes on disk and hands
// each valid result to onChange. Invalid edits are logged and skipped.
func (cl *ConfigLoader) Watch(path string, onChange func(*Config)) error {
	v := cl.newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read script '%s': %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := cl.decode(v, path)
		if err != nil {
			cl.logger.WithError(err).WithField("file", path).Warn("Ignoring invalid script change")
			return
		}

		cl.logger.WithFields(logrus.Fields{
			"file":  path,
			"op":    e.Op.String(),
			"lines": len(cfg.Lines),
		}).Info("Script reloaded")
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}

// IsScriptFile reports whether path names an existing file with a script
// extension
func (cl *ConfigLoader) IsScriptFile(path string) bool {
	if path == "" || !ScriptExtensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	info, err := cl.fs.Stat(path)
	return err == nil && !info.IsDir()
}
