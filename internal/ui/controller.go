// internal/ui/controller.go
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/control"
	"github.com/jdharms/termynal/internal/display"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Options configures how a script is played
type Options struct {
	ControlHost string
	ControlPort int // 0 disables the control server
	HealthPort  int // 0 disables the health server
	Watch       bool
	Headless    bool
}

// PlayerController manages a player and the services around it and
// provides UI feedback
type PlayerController struct {
	logger   *logrus.Logger
	cli      *CLI
	opts     Options
	registry *player.Registry
	notifier *Notifier

	script        *config.Script
	player        *player.Player
	controlServer *control.Server
	health        *control.HealthReporter
	untrack       func() error
}

// NewPlayerController creates a new player controller
func NewPlayerController(logger *logrus.Logger, cli *CLI, opts Options) *PlayerController {
	return &PlayerController{
		logger:   logger,
		cli:      cli,
		opts:     opts,
		registry: player.NewRegistry(),
		notifier: NewNotifier(),
	}
}

// ValidateScript checks a script before a player is built for it
func (pc *PlayerController) ValidateScript(script *config.Script) error {
	if script == nil || script.Config == nil {
		return fmt.Errorf("no script loaded")
	}
	if err := script.Config.Validate(); err != nil {
		return err
	}
	if len(script.Config.Lines) == 0 {
		return fmt.Errorf("script '%s' has no lines", script.Name)
	}
	return nil
}

// InitializePlayer creates the player for script
func (pc *PlayerController) InitializePlayer(script *config.Script) error {
	ec := engine.DefaultEngineConfig()
	if !pc.opts.Headless {
		ec = TerminalEngineConfig()
	}

	buffer := display.NewBuffer(display.WithObserver(pc.notifier.Notify))

	p, err := player.New(buffer, script.Config, player.Options{
		Logger:   pc.logger,
		Registry: pc.registry,
		Engine:   ec,
		OnChange: pc.notifier.Notify,
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	pc.script = script
	pc.player = p
	pc.cli.printSuccess(fmt.Sprintf("Player ready: %s (%s)", script.Config.Title, p.InstanceID()))
	return nil
}

// StartServices starts the control and health servers and the script
// watcher. Service failures are reported but do not stop playback.
func (pc *PlayerController) StartServices(ctx context.Context) error {
	if pc.player == nil {
		return fmt.Errorf("player not initialized")
	}

	if pc.opts.ControlPort > 0 {
		pc.controlServer = control.NewServer(pc.logger, pc.registry, pc.opts.ControlHost, pc.opts.ControlPort)
		if err := pc.controlServer.Start(ctx); err != nil {
			pc.logger.WithError(err).Error("Failed to start control server")
			pc.controlServer = nil
		} else {
			pc.cli.printSuccess(fmt.Sprintf("Control server listening on %s", pc.controlServer.Addr()))
		}
	}

	if pc.opts.HealthPort > 0 {
		pc.health = control.NewHealthReporter(pc.logger)
		pc.untrack = pc.health.Track(pc.player)
		addr := fmt.Sprintf("%s:%d", pc.opts.ControlHost, pc.opts.HealthPort)
		if err := pc.health.Start(addr); err != nil {
			pc.logger.WithError(err).Error("Failed to start health server")
		} else {
			pc.cli.printSuccess(fmt.Sprintf("Health server listening on %s", pc.health.Addr()))
		}
	}

	if pc.opts.Watch && pc.script.Path != "" {
		err := pc.cli.configLoader.Watch(pc.script.Path, func(cfg *config.Config) {
			pc.player.Reload(cfg.Lines)
		})
		if err != nil {
			pc.logger.WithError(err).Error("Failed to watch script")
		} else {
			pc.cli.printInfo(fmt.Sprintf("Watching %s for changes", pc.script.Path))
		}
	}

	go pc.monitorPlayerEvents(ctx)

	return nil
}

// Run plays the script until it ends (headless) or the user quits
func (pc *PlayerController) Run(ctx context.Context) error {
	if pc.player == nil {
		return fmt.Errorf("player not initialized")
	}

	if pc.opts.Headless {
		err := NewHeadless(pc.logger, pc.player, nil).Run(ctx)
		if errors.Is(err, ErrPlaybackStopped) {
			pc.cli.printWarning("Playback stopped")
			return nil
		}
		if err == nil {
			pc.displayStatus()
		}
		return err
	}

	program := tea.NewProgram(
		NewModel(pc.logger, pc.player, pc.notifier),
		tea.WithContext(ctx),
		tea.WithMouseCellMotion(),
	)

	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal host failed: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}

// Stop tears down the services and destroys the player
func (pc *PlayerController) Stop() error {
	var err error

	if pc.controlServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = multierr.Append(err, pc.controlServer.Stop(ctx))
		cancel()
	}
	if pc.untrack != nil {
		err = multierr.Append(err, pc.untrack())
	}
	if pc.health != nil {
		pc.health.Stop()
	}
	if pc.player != nil {
		err = multierr.Append(err, pc.player.Destroy())
	}

	if err != nil {
		return fmt.Errorf("failed to stop player: %w", err)
	}
	pc.logger.Info("Player controller stopped")
	return nil
}

// displayStatus shows the final player status
func (pc *PlayerController) displayStatus() {
	status := pc.player.Status()

	fmt.Println("\n" + strings.Repeat("─", 60))
	fmt.Printf("Script: %s (%s)\n", status.Title, status.InstanceID)
	fmt.Printf("Phase: %s\n", status.Phase)
	fmt.Printf("Lines: %d/%d (%d%%)\n", status.Progress.Current, status.Progress.Total, status.Progress.Percentage)
	fmt.Printf("Elapsed Time: %v\n", (time.Duration(status.ElapsedMs) * time.Millisecond).Truncate(time.Millisecond))
	fmt.Println(strings.Repeat("─", 60))
}

// monitorPlayerEvents logs lifecycle events until ctx is done or the player
// is destroyed
func (pc *PlayerController) monitorPlayerEvents(ctx context.Context) {
	for ev := range pc.player.Subscribe(ctx) {
		pc.handlePlayerEvent(ev)
	}
}

func (pc *PlayerController) handlePlayerEvent(ev engine.Event) {
	entry := pc.logger.WithFields(logrus.Fields{
		"instance": ev.InstanceID,
		"event":    string(ev.Type),
		"index":    ev.Index,
	})

	switch ev.Type {
	case engine.EventLineError:
		entry.WithField("error", ev.Error).Warn("Line failed to render")
		if pc.opts.Headless {
			pc.cli.printWarning(fmt.Sprintf("Line %d failed to render: %s", ev.Index+1, ev.Error))
		}
	case engine.EventError:
		entry.WithField("error", ev.Error).Error("Playback error")
	case engine.EventComplete:
		entry.WithFields(logrus.Fields{
			"lines":    ev.TotalLines,
			"duration": ev.Duration.String(),
		}).Info("Script finished")
	case engine.EventLineStart, engine.EventLineComplete:
		entry.Debug("Line event")
	default:
		entry.Info("Player event")
	}
}
