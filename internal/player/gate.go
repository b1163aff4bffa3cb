// internal/player/gate.go
package player

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Gate defers initialization until the container is visible enough
type Gate struct {
	logger *logrus.Logger
	onOpen func()

	// Configuration
	threshold float64

	// State tracking
	mu      sync.Mutex
	enabled bool
	opened  bool
}

// GateConfig contains configuration for the visibility gate
type GateConfig struct {
	Threshold float64 // Minimum visible ratio in [0,1]
}

// DefaultGateConfig returns default gate configuration
func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		Threshold: 0.1,
	}
}

// NewGate creates a gate that calls onOpen once
func NewGate(logger *logrus.Logger, config *GateConfig, onOpen func()) *Gate {
	if config == nil {
		config = DefaultGateConfig()
	}

	return &Gate{
		logger:    logger,
		onOpen:    onOpen,
		threshold: config.Threshold,
		enabled:   true,
	}
}

// Observe reports the visible ratio of the container. The gate opens the
// first time some of the container is visible and the ratio reaches the
// threshold. It returns true for the call that opened it.
func (g *Gate) Observe(ratio float64) bool {
	g.mu.Lock()
	if !g.enabled || g.opened || ratio <= 0 || ratio < g.threshold {
		g.mu.Unlock()
		return false
	}
	g.opened = true
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"ratio":     ratio,
		"threshold": g.threshold,
	}).Debug("Container became visible")

	if g.onOpen != nil {
		g.onOpen()
	}
	return true
}

// Opened reports whether the gate has opened
func (g *Gate) Opened() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

// Disable stops the gate from ever opening
func (g *Gate) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = false
}
