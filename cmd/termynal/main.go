package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jdharms/termynal/internal/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// DefaultControlPort is the HTTP/WebSocket port of the control server
	DefaultControlPort = 4180
	// DefaultHealthPort is the gRPC health port; 0 disables it
	DefaultHealthPort = 0
)

var (
	rootCmd = &cobra.Command{
		Use:   "termynal [script]",
		Short: "Scripted terminal animations",
		Long: `termynal plays scripted terminal sessions: typed commands, revealed output
and progress indicators, with pause, speed and restart controls.

Scripts are YAML, JSON or TOML files holding the player options and a list
of lines. Options can be overridden with TERMYNAL_* environment variables.

Examples:
  termynal                              # Interactive mode - select from available scripts
  termynal demo                         # Play a script by file name or title
  termynal ./demo.yaml --watch          # Play a file and restart it when it changes
  termynal demo --headless              # Print lines as they finish, no terminal UI`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPlayer,
	}

	validateCmd = &cobra.Command{
		Use:   "validate [script]",
		Short: "Validate one script or every script in the scripts directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runValidate,
	}

	configCmd = &cobra.Command{
		Use:   "config <script>",
		Short: "Print the resolved configuration of a script as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfig,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("scripts-dir", "./scripts", "Directory containing animation scripts")
	flags.String("log-dir", "./logs", "Directory for log files")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("control-host", "localhost", "Control server host")
	flags.Int("control-port", DefaultControlPort, "Control server port (0 disables the server)")
	flags.Int("health-port", DefaultHealthPort, "gRPC health server port (0 disables the server)")
	flags.Bool("watch", false, "Restart playback when the script file changes")
	flags.Bool("headless", false, "Print finished lines instead of running the terminal UI")

	// Bind flags to viper
	for _, name := range []string{
		"scripts-dir", "log-dir", "log-level", "control-host",
		"control-port", "health-port", "watch", "headless",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(validateCmd, configCmd)
}

func newLogger() (*logrus.Logger, error) {
	logger, err := ui.InitializeLogger(viper.GetString("log-dir"), viper.GetString("log-level"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func newCLI(logger *logrus.Logger) *ui.CLI {
	return ui.NewCLI(logger, viper.GetString("scripts-dir"), ui.Options{
		ControlHost: viper.GetString("control-host"),
		ControlPort: viper.GetInt("control-port"),
		HealthPort:  viper.GetInt("health-port"),
		Watch:       viper.GetBool("watch"),
		Headless:    viper.GetBool("headless"),
	})
}

func scriptArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runPlayer(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	logger.Info("termynal starting up")
	logger.WithFields(logrus.Fields{
		"scripts-dir":  viper.GetString("scripts-dir"),
		"log-level":    viper.GetString("log-level"),
		"control-host": viper.GetString("control-host"),
		"control-port": viper.GetInt("control-port"),
		"health-port":  viper.GetInt("health-port"),
		"watch":        viper.GetBool("watch"),
		"headless":     viper.GetBool("headless"),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI(logger).Start(ctx, scriptArg(args)); err != nil {
		logger.WithError(err).Error("Player exited with an error")
		return err
	}

	logger.Info("termynal shut down")
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	return newCLI(logger).Validate(scriptArg(args))
}

func runConfig(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	return newCLI(logger).PrintConfig(args[0], cmd.OutOrStdout())
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
