package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ErrUnknownOption is returned by Set for keys that are not configuration options
var ErrUnknownOption = errors.New("unknown configuration option")

// Config is a complete animation script: window options, timing and lines
type Config struct {
	Title string `mapstructure:"title" json:"title" yaml:"title"`
	Theme string `mapstructure:"theme" json:"theme" yaml:"theme"`

	// Base timing in milliseconds
	StartDelay int `mapstructure:"startDelay" json:"startDelay" yaml:"startDelay"`
	TypeDelay  int `mapstructure:"typeDelay" json:"typeDelay" yaml:"typeDelay"`
	LineDelay  int `mapstructure:"lineDelay" json:"lineDelay" yaml:"lineDelay"`

	Cursor          string `mapstructure:"cursor" json:"cursor" yaml:"cursor"`
	AutoStart       bool   `mapstructure:"autoStart" json:"autoStart" yaml:"autoStart"`
	Loop            bool   `mapstructure:"loop" json:"loop" yaml:"loop"`
	ShowControls    bool   `mapstructure:"showControls" json:"showControls" yaml:"showControls"`
	HighlightSyntax bool   `mapstructure:"highlightSyntax" json:"highlightSyntax" yaml:"highlightSyntax"`
	Copyable        bool   `mapstructure:"copyable" json:"copyable" yaml:"copyable"`
	Resizable       bool   `mapstructure:"resizable" json:"resizable" yaml:"resizable"`
	Fullscreen      bool   `mapstructure:"fullscreen" json:"fullscreen" yaml:"fullscreen"`

	DefaultPrompt      string `mapstructure:"defaultPrompt" json:"defaultPrompt" yaml:"defaultPrompt"`
	DefaultPromptColor string `mapstructure:"defaultPromptColor" json:"defaultPromptColor" yaml:"defaultPromptColor"`

	Height string `mapstructure:"height" json:"height" yaml:"height"`
	Width  string `mapstructure:"width" json:"width" yaml:"width"`

	LazyLoading           bool    `mapstructure:"lazyLoading" json:"lazyLoading" yaml:"lazyLoading"`
	IntersectionThreshold float64 `mapstructure:"intersectionThreshold" json:"intersectionThreshold" yaml:"intersectionThreshold"`
	RootMargin            string  `mapstructure:"rootMargin" json:"rootMargin" yaml:"rootMargin"`

	Lines []Line `mapstructure:"lines" json:"lines" yaml:"lines"`
}

// Themes contains the supported window decoration presets
var Themes = map[string]bool{
	"macos":   true,
	"windows": true,
	"ubuntu":  true,
	"light":   true,
}

// DefaultConfig returns the default configuration with no lines
func DefaultConfig() *Config {
	return &Config{
		Title:                 "Terminal",
		Theme:                 "macos",
		StartDelay:            600,
		TypeDelay:             90,
		LineDelay:             1500,
		Cursor:                "▋",
		AutoStart:             true,
		ShowControls:          true,
		DefaultPrompt:         "$",
		DefaultPromptColor:    "#a2a2a2",
		Height:                "auto",
		Width:                 "100%",
		IntersectionThreshold: 0.1,
		RootMargin:            "50px",
	}
}

// StartDelayDuration returns the configured initial delay
func (c *Config) StartDelayDuration() time.Duration {
	return time.Duration(c.StartDelay) * time.Millisecond
}

// TypeDelayDuration returns the configured character interval
func (c *Config) TypeDelayDuration() time.Duration {
	return time.Duration(c.TypeDelay) * time.Millisecond
}

// LineDelayDuration returns the configured post-line pause
func (c *Config) LineDelayDuration() time.Duration {
	return time.Duration(c.LineDelay) * time.Millisecond
}

// Validate validates the configuration and all of its lines
func (c *Config) Validate() error {
	if c.StartDelay < 0 || c.TypeDelay < 0 || c.LineDelay < 0 {
		return fmt.Errorf("timing values must not be negative (startDelay=%d typeDelay=%d lineDelay=%d)",
			c.StartDelay, c.TypeDelay, c.LineDelay)
	}

	if c.Theme != "" && !Themes[c.Theme] {
		return fmt.Errorf("unknown theme '%s'", c.Theme)
	}

	if c.IntersectionThreshold < 0 || c.IntersectionThreshold > 1 {
		return fmt.Errorf("intersectionThreshold must be within [0,1], got %v", c.IntersectionThreshold)
	}

	for i, line := range c.Lines {
		if err := line.validate(i); err != nil {
			return err
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	clone.Lines = CloneLines(c.Lines)
	return &clone
}

// Set assigns a single option by its script key (case-insensitive),
// coercing value to the option's type. Lines cannot be set this way.
func (c *Config) Set(key string, value any) error {
	var err error
	next := *c

	switch strings.ToLower(key) {
	case "title":
		next.Title, err = cast.ToStringE(value)
	case "theme":
		next.Theme, err = cast.ToStringE(value)
	case "startdelay":
		next.StartDelay, err = cast.ToIntE(value)
	case "typedelay":
		next.TypeDelay, err = cast.ToIntE(value)
	case "linedelay":
		next.LineDelay, err = cast.ToIntE(value)
	case "cursor":
		next.Cursor, err = cast.ToStringE(value)
	case "autostart":
		next.AutoStart, err = cast.ToBoolE(value)
	case "loop":
		next.Loop, err = cast.ToBoolE(value)
	case "showcontrols":
		next.ShowControls, err = cast.ToBoolE(value)
	case "highlightsyntax":
		next.HighlightSyntax, err = cast.ToBoolE(value)
	case "copyable":
		next.Copyable, err = cast.ToBoolE(value)
	case "resizable":
		next.Resizable, err = cast.ToBoolE(value)
	case "fullscreen":
		next.Fullscreen, err = cast.ToBoolE(value)
	case "defaultprompt":
		next.DefaultPrompt, err = cast.ToStringE(value)
	case "defaultpromptcolor":
		next.DefaultPromptColor, err = cast.ToStringE(value)
	case "height":
		next.Height, err = cast.ToStringE(value)
	case "width":
		next.Width, err = cast.ToStringE(value)
	case "lazyloading":
		next.LazyLoading, err = cast.ToBoolE(value)
	case "intersectionthreshold":
		next.IntersectionThreshold, err = cast.ToFloat64E(value)
	case "rootmargin":
		next.RootMargin, err = cast.ToStringE(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}

	if err != nil {
		return fmt.Errorf("invalid value for option '%s': %w", key, err)
	}

	*c = next
	return nil
}
