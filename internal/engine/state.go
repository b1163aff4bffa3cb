// internal/engine/state.go
package engine

import (
	"fmt"
	"time"
)

// Phase is the playback state machine position
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRunning
	PhasePaused
	PhaseCompleted
	PhaseRestarting
	PhaseStopped
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseStarting:
		return "Starting"
	case PhaseRunning:
		return "Running"
	case PhasePaused:
		return "Paused"
	case PhaseCompleted:
		return "Completed"
	case PhaseRestarting:
		return "Restarting"
	case PhaseStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name written by MarshalText
func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseIdle; candidate <= PhaseStopped; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase '%s'", text)
}

// PlaybackState is the per-run bookkeeping of an engine. Paused implies
// Running; stopping clears both.
type PlaybackState struct {
	Running     bool
	Paused      bool
	Restarting  bool
	CurrentLine int
	StartTime   time.Time
	PauseStart  time.Time
	PausedTime  time.Duration
}

// elapsed is wall-clock time since StartTime minus every paused span,
// including the one in progress
func (s PlaybackState) elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}

	paused := s.PausedTime
	if s.Paused {
		paused += now.Sub(s.PauseStart)
	}

	return now.Sub(s.StartTime) - paused
}

// Progress reports how far playback has advanced
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// PerformanceInfo is a snapshot of internal resource usage
type PerformanceInfo struct {
	ActiveTimers   int    `json:"activeTimers"`
	CacheSize      int    `json:"cacheSize"`
	ProcessedLines int    `json:"processedLines"`
	InstanceID     string `json:"instanceId"`
}

// Timing holds the base timing parameters in milliseconds
type Timing struct {
	StartDelay int `json:"startDelay"`
	TypeDelay  int `json:"typeDelay"`
	LineDelay  int `json:"lineDelay"`
}

// TimingPatch updates selected timing parameters; nil fields are left alone
type TimingPatch struct {
	StartDelay *int `json:"startDelay,omitempty"`
	TypeDelay  *int `json:"typeDelay,omitempty"`
	LineDelay  *int `json:"lineDelay,omitempty"`
}

func (t Timing) apply(p TimingPatch) Timing {
	if p.StartDelay != nil {
		t.StartDelay = *p.StartDelay
	}
	if p.TypeDelay != nil {
		t.TypeDelay = *p.TypeDelay
	}
	if p.LineDelay != nil {
		t.LineDelay = *p.LineDelay
	}
	return t
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
