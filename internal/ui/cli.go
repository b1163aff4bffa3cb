package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jdharms/termynal/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CLI handles the command-line interface for the player
type CLI struct {
	logger       *logrus.Logger
	configLoader *config.ConfigLoader
	scanner      *bufio.Scanner
	opts         Options
}

// NewCLI creates a new CLI interface
func NewCLI(logger *logrus.Logger, scriptsDir string, opts Options) *CLI {
	return NewCLIWithLoader(logger, config.NewConfigLoader(logger, scriptsDir), os.Stdin, opts)
}

// NewCLIWithLoader creates a CLI over an existing loader and input
func NewCLIWithLoader(logger *logrus.Logger, loader *config.ConfigLoader, in io.Reader, opts Options) *CLI {
	return &CLI{
		logger:       logger,
		configLoader: loader,
		scanner:      bufio.NewScanner(in),
		opts:         opts,
	}
}

// Start loads the named script (or asks for one) and plays it
func (c *CLI) Start(ctx context.Context, name string) error {
	c.printHeader()

	script, err := c.ResolveScript(name)
	if err != nil {
		return err
	}

	c.printSuccess(fmt.Sprintf("Loaded: %s (%d lines)", script.Config.Title, len(script.Config.Lines)))

	controller := NewPlayerController(c.logger, c, c.opts)

	if err := controller.ValidateScript(script); err != nil {
		return fmt.Errorf("script validation failed: %w", err)
	}

	if err := controller.InitializePlayer(script); err != nil {
		return err
	}
	defer func() {
		if err := controller.Stop(); err != nil {
			c.printWarning(err.Error())
		}
	}()

	if err := controller.StartServices(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}

	if !c.opts.Headless {
		c.printInfo("Starting terminal host (press ? for help)...")
	}

	return controller.Run(ctx)
}

// ResolveScript finds the script to play. name may be a script file path,
// a script name or title, or empty for interactive selection.
func (c *CLI) ResolveScript(name string) (*config.Script, error) {
	if c.configLoader.IsScriptFile(name) {
		c.printInfo(fmt.Sprintf("Loading script %s...", name))
		cfg, err := c.configLoader.LoadScript(name)
		if err != nil {
			return nil, err
		}
		base := filepath.Base(name)
		return &config.Script{
			Name:   strings.TrimSuffix(base, filepath.Ext(base)),
			Path:   name,
			Config: cfg,
		}, nil
	}

	c.printInfo("Discovering scripts...")
	scripts, err := c.configLoader.DiscoverScripts()
	if err != nil {
		return nil, fmt.Errorf("failed to discover scripts: %w", err)
	}

	if len(scripts) == 0 {
		return nil, fmt.Errorf("no valid scripts found")
	}

	c.printSuccess(fmt.Sprintf("Found %d script(s)", len(scripts)))

	if name == "" {
		script, err := c.selectScriptInteractive(scripts)
		if err != nil {
			return nil, fmt.Errorf("script selection failed: %w", err)
		}
		return script, nil
	}

	script, err := c.configLoader.FindScriptByName(scripts, name)
	if err != nil {
		c.printError(fmt.Sprintf("Script selection failed: %v", err))
		c.printInfo("Available scripts:")
		c.listScripts(scripts)
		return nil, err
	}
	c.printSuccess(fmt.Sprintf("Selected script: %s", script.Config.Title))
	return script, nil
}

// Validate loads the named script, or every discovered script, and reports
// the result
func (c *CLI) Validate(name string) error {
	if name != "" {
		script, err := c.ResolveScript(name)
		if err != nil {
			c.printError(err.Error())
			return err
		}
		c.printSuccess(fmt.Sprintf("%s is valid (%d lines)", script.Name, len(script.Config.Lines)))
		return nil
	}

	scripts, err := c.configLoader.DiscoverScripts()
	if err != nil {
		c.printError(err.Error())
		return err
	}
	for _, s := range scripts {
		c.printSuccess(fmt.Sprintf("%s is valid (%d lines)", s.Name, len(s.Config.Lines)))
	}
	return nil
}

// PrintConfig writes the resolved configuration of a script as YAML
func (c *CLI) PrintConfig(name string, w io.Writer) error {
	script, err := c.ResolveScript(name)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(script.Config); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

// selectScriptInteractive presents an interactive menu for script selection
func (c *CLI) selectScriptInteractive(scripts []*config.Script) (*config.Script, error) {
	c.printInfo("Available scripts:")
	c.listScripts(scripts)

	for {
		fmt.Print("\nSelect script (1-" + strconv.Itoa(len(scripts)) + ") or 'q' to quit: ")

		if !c.scanner.Scan() {
			return nil, fmt.Errorf("failed to read input")
		}

		input := strings.TrimSpace(c.scanner.Text())

		if input == "q" || input == "quit" {
			return nil, fmt.Errorf("user quit")
		}

		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(scripts) {
			c.printError(fmt.Sprintf("Invalid selection. Please enter a number between 1 and %d, or 'q' to quit.", len(scripts)))
			continue
		}

		selected := scripts[choice-1]
		c.printSuccess(fmt.Sprintf("Selected: %s", selected.Config.Title))
		return selected, nil
	}
}

// listScripts displays a numbered list of available scripts
func (c *CLI) listScripts(scripts []*config.Script) {
	for i, s := range scripts {
		fmt.Printf("  %d. %s (%s - %d lines)\n", i+1, s.Name, s.Config.Title, len(s.Config.Lines))
	}
}

// printHeader displays the application header
func (c *CLI) printHeader() {
	header := color.New(color.FgCyan, color.Bold)
	header.Println("┌─────────────────────────────────────────────────────────────┐")
	header.Println("│                         termynal                            │")
	header.Println("│              scripted terminal animations                   │")
	header.Println("└─────────────────────────────────────────────────────────────┘")
	fmt.Println()
}

// printInfo prints an informational message
func (c *CLI) printInfo(message string) {
	info := color.New(color.FgBlue)
	info.Printf("[INFO] %s\n", message)
}

// printSuccess prints a success message
func (c *CLI) printSuccess(message string) {
	success := color.New(color.FgGreen)
	success.Printf("[SUCCESS] %s\n", message)
}

// printError prints an error message
func (c *CLI) printError(message string) {
	errorColor := color.New(color.FgRed)
	errorColor.Printf("[ERROR] %s\n", message)
}

// printWarning prints a warning message
func (c *CLI) printWarning(message string) {
	warning := color.New(color.FgYellow)
	warning.Printf("[WARNING] %s\n", message)
}
