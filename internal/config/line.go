package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"time"
)

// LineType identifies how a line is animated
type LineType string

const (
	LineInput    LineType = "input"
	LineOutput   LineType = "output"
	LineComment  LineType = "comment"
	LineWarning  LineType = "warning"
	LineSuccess  LineType = "success"
	LineError    LineType = "error"
	LineProgress LineType = "progress"
)

// ProgressStyle selects the sub-animation of a progress line
type ProgressStyle string

const (
	ProgressBar     ProgressStyle = "bar"
	ProgressSpinner ProgressStyle = "spinner"
	ProgressDots    ProgressStyle = "dots"
)

// ValidProgressStyles contains all supported progress styles. The empty
// style is accepted and means bar.
var ValidProgressStyles = map[ProgressStyle]bool{
	"":              true,
	ProgressBar:     true,
	ProgressSpinner: true,
	ProgressDots:    true,
}

// Line is a single authored line of the script
type Line struct {
	Type        LineType `mapstructure:"type" json:"type" yaml:"type"`
	Text        string   `mapstructure:"text" json:"text,omitempty" yaml:"text,omitempty"`
	Prompt      string   `mapstructure:"prompt" json:"prompt,omitempty" yaml:"prompt,omitempty"`
	PromptColor string   `mapstructure:"promptColor" json:"promptColor,omitempty" yaml:"promptColor,omitempty"`
	Class       string   `mapstructure:"class" json:"class,omitempty" yaml:"class,omitempty"`

	// ShowPrompt forces a prompt on non-input lines
	ShowPrompt bool `mapstructure:"defaultPrompt" json:"defaultPrompt,omitempty" yaml:"defaultPrompt,omitempty"`

	// Timing overrides in milliseconds. A nil pointer means "not set"; an
	// explicit zero is meaningful.
	TypeDelay *int `mapstructure:"typeDelay" json:"typeDelay,omitempty" yaml:"typeDelay,omitempty"`
	LineDelay *int `mapstructure:"lineDelay" json:"lineDelay,omitempty" yaml:"lineDelay,omitempty"`

	// Progress-only fields. Zero values fall back to the defaults.
	Style          ProgressStyle `mapstructure:"style" json:"style,omitempty" yaml:"style,omitempty"`
	Duration       int           `mapstructure:"duration" json:"duration,omitempty" yaml:"duration,omitempty"`
	MaxDots        int           `mapstructure:"maxDots" json:"maxDots,omitempty" yaml:"maxDots,omitempty"`
	Cycles         int           `mapstructure:"cycles" json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Length         int           `mapstructure:"length" json:"length,omitempty" yaml:"length,omitempty"`
	CompleteChar   string        `mapstructure:"completeChar" json:"completeChar,omitempty" yaml:"completeChar,omitempty"`
	IncompleteChar string        `mapstructure:"incompleteChar" json:"incompleteChar,omitempty" yaml:"incompleteChar,omitempty"`
	Percent        int           `mapstructure:"percent" json:"percent,omitempty" yaml:"percent,omitempty"`
}

// Millis returns a pointer to ms, for building lines with explicit overrides
func Millis(ms int) *int {
	return &ms
}

// ExplicitLineDelay returns the per-line post-line pause if one was set
func (l Line) ExplicitLineDelay() (time.Duration, bool) {
	if l.LineDelay == nil {
		return 0, false
	}
	return time.Duration(*l.LineDelay) * time.Millisecond, true
}

// ExplicitTypeDelay returns the per-line character interval if one was set
func (l Line) ExplicitTypeDelay() (time.Duration, bool) {
	if l.TypeDelay == nil {
		return 0, false
	}
	return time.Duration(*l.TypeDelay) * time.Millisecond, true
}

// Clone returns a deep copy of the line
func (l Line) Clone() Line {
	if l.TypeDelay != nil {
		l.TypeDelay = Millis(*l.TypeDelay)
	}
	if l.LineDelay != nil {
		l.LineDelay = Millis(*l.LineDelay)
	}
	return l
}

// Patch overlays the JSON object in data onto the line. Fields absent from
// data keep their current values.
func (l *Line) Patch(data []byte) error {
	patched := l.Clone()
	if err := json.Unmarshal(data, &patched); err != nil {
		return fmt.Errorf("failed to apply line patch: %w", err)
	}
	*l = patched
	return nil
}

// Merge overlays the non-zero fields of update onto the line. ShowPrompt
// can only be switched on this way; use Patch to clear fields.
func (l *Line) Merge(update Line) {
	update = update.Clone()

	l.Type = cmp.Or(update.Type, l.Type)
	l.Text = cmp.Or(update.Text, l.Text)
	l.Prompt = cmp.Or(update.Prompt, l.Prompt)
	l.PromptColor = cmp.Or(update.PromptColor, l.PromptColor)
	l.Class = cmp.Or(update.Class, l.Class)
	l.ShowPrompt = l.ShowPrompt || update.ShowPrompt
	l.TypeDelay = cmp.Or(update.TypeDelay, l.TypeDelay)
	l.LineDelay = cmp.Or(update.LineDelay, l.LineDelay)

	l.Style = cmp.Or(update.Style, l.Style)
	l.Duration = cmp.Or(update.Duration, l.Duration)
	l.MaxDots = cmp.Or(update.MaxDots, l.MaxDots)
	l.Cycles = cmp.Or(update.Cycles, l.Cycles)
	l.Length = cmp.Or(update.Length, l.Length)
	l.CompleteChar = cmp.Or(update.CompleteChar, l.CompleteChar)
	l.IncompleteChar = cmp.Or(update.IncompleteChar, l.IncompleteChar)
	l.Percent = cmp.Or(update.Percent, l.Percent)
}

// validate checks a single line; index is used for error messages only
func (l Line) validate(index int) error {
	if l.TypeDelay != nil && *l.TypeDelay < 0 {
		return fmt.Errorf("line %d has negative typeDelay %d", index, *l.TypeDelay)
	}
	if l.LineDelay != nil && *l.LineDelay < 0 {
		return fmt.Errorf("line %d has negative lineDelay %d", index, *l.LineDelay)
	}
	if l.Type == LineProgress && !ValidProgressStyles[l.Style] {
		return fmt.Errorf("line %d has unknown progress style '%s'", index, l.Style)
	}
	if l.Duration < 0 || l.MaxDots < 0 || l.Cycles < 0 || l.Length < 0 || l.Percent < 0 {
		return fmt.Errorf("line %d has a negative progress parameter", index)
	}
	return nil
}

// CloneLines returns a deep copy of lines
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}
