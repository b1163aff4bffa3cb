package config

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.StartDelay != 600 || cfg.TypeDelay != 90 || cfg.LineDelay != 1500 {
		t.Errorf("unexpected default timing: %d/%d/%d", cfg.StartDelay, cfg.TypeDelay, cfg.LineDelay)
	}
	if !cfg.AutoStart || !cfg.ShowControls {
		t.Error("expected autoStart and showControls to default to true")
	}
	if cfg.DefaultPrompt != "$" {
		t.Errorf("expected default prompt '$', got %q", cfg.DefaultPrompt)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"negative type delay", func(c *Config) { c.TypeDelay = -1 }, "must not be negative"},
		{"unknown theme", func(c *Config) { c.Theme = "amiga" }, "unknown theme"},
		{"threshold too large", func(c *Config) { c.IntersectionThreshold = 1.5 }, "intersectionThreshold"},
		{"negative line delay", func(c *Config) {
			c.Lines = []Line{{Type: LineOutput, LineDelay: Millis(-5)}}
		}, "negative lineDelay"},
		{"unknown progress style", func(c *Config) {
			c.Lines = []Line{{Type: LineProgress, Style: "wave"}}
		}, "unknown progress style"},
		{"unknown line type is accepted", func(c *Config) {
			c.Lines = []Line{{Type: "banner", Text: "hi"}}
		}, ""},
		{"explicit zero line delay is accepted", func(c *Config) {
			c.Lines = []Line{{Type: LineOutput, LineDelay: Millis(0)}}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_Set(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Set("typeDelay", "25"); err != nil {
		t.Fatalf("Set(typeDelay) failed: %v", err)
	}
	if cfg.TypeDelay != 25 {
		t.Errorf("expected typeDelay 25, got %d", cfg.TypeDelay)
	}

	if err := cfg.Set("LOOP", true); err != nil {
		t.Fatalf("Set(LOOP) failed: %v", err)
	}
	if !cfg.Loop {
		t.Error("expected loop to be enabled")
	}

	if err := cfg.Set("nonsense", 1); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption, got %v", err)
	}

	before := cfg.LineDelay
	if err := cfg.Set("lineDelay", "slow"); err == nil {
		t.Error("expected error for non-numeric lineDelay")
	}
	if cfg.LineDelay != before {
		t.Errorf("failed Set must not modify the config, lineDelay changed to %d", cfg.LineDelay)
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lines = []Line{{Type: LineInput, Text: "ls", LineDelay: Millis(10)}}

	clone := cfg.Clone()
	clone.Lines[0].Text = "pwd"
	*clone.Lines[0].LineDelay = 99

	if cfg.Lines[0].Text != "ls" {
		t.Error("clone shares the lines slice")
	}
	if *cfg.Lines[0].LineDelay != 10 {
		t.Error("clone shares the lineDelay pointer")
	}
}

func TestLine_Patch(t *testing.T) {
	line := Line{Type: LineInput, Text: "ls", Prompt: "#", LineDelay: Millis(10)}

	if err := line.Patch([]byte(`{"text":"ls -la","lineDelay":0}`)); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	if line.Text != "ls -la" {
		t.Errorf("expected patched text, got %q", line.Text)
	}
	if line.Prompt != "#" {
		t.Errorf("expected prompt to survive the patch, got %q", line.Prompt)
	}
	if d, ok := line.ExplicitLineDelay(); !ok || d != 0 {
		t.Errorf("expected explicit zero line delay, got %v (set=%v)", d, ok)
	}

	if err := line.Patch([]byte(`{"text":`)); err == nil {
		t.Error("expected error for malformed patch")
	}
	if line.Text != "ls -la" {
		t.Error("failed patch must not modify the line")
	}
}

func TestLine_Merge(t *testing.T) {
	tests := []struct {
		name   string
		update Line
		want   Line
	}{
		{
			name:   "text only keeps type and prompt",
			update: Line{Text: "ls -la"},
			want:   Line{Type: LineInput, Text: "ls -la", Prompt: "#", LineDelay: Millis(10)},
		},
		{
			name:   "explicit zero delay overrides",
			update: Line{LineDelay: Millis(0)},
			want:   Line{Type: LineInput, Text: "ls", Prompt: "#", LineDelay: Millis(0)},
		},
		{
			name:   "type change",
			update: Line{Type: LineProgress, Style: ProgressDots},
			want:   Line{Type: LineProgress, Text: "ls", Prompt: "#", LineDelay: Millis(10), Style: ProgressDots},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Line{Type: LineInput, Text: "ls", Prompt: "#", LineDelay: Millis(10)}
			line.Merge(tt.update)

			got, _ := line.ExplicitLineDelay()
			want, _ := tt.want.ExplicitLineDelay()
			line.LineDelay, tt.want.LineDelay = nil, nil
			if line != tt.want || got != want {
				t.Errorf("Merge() = %+v (lineDelay %v), want %+v (lineDelay %v)", line, got, tt.want, want)
			}
		})
	}
}

func TestInstanceID(t *testing.T) {
	a := DefaultConfig()
	a.Lines = []Line{{Type: LineInput, Text: "ls"}}
	b := a.Clone()

	idA := InstanceID(a)
	if idA != InstanceID(b) {
		t.Error("identical configurations must produce the same id")
	}
	if !strings.HasPrefix(idA, "termynal_") {
		t.Errorf("expected termynal_ prefix, got %q", idA)
	}
	if len(idA) > len("termynal_")+8 {
		t.Errorf("id suffix longer than 8 characters: %q", idA)
	}

	b.Title = "Other"
	if idA == InstanceID(b) {
		t.Error("expected a different id for a different title")
	}

	// Options outside lines/title/theme do not participate
	c := a.Clone()
	c.TypeDelay = 1
	if idA != InstanceID(c) {
		t.Error("typeDelay must not affect the instance id")
	}
}
