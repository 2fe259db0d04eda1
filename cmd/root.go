package cmd

import (
	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "wlseat",
		Short: "wlseat - Wayland seat input tracker",
		Long: `wlseat connects to a Wayland compositor, maps a small probe window and
tracks the seat's input state: pressed keys, pointer motion and buttons,
touch contacts, outputs and window layout. The state is served to local
tools over a unix socket and to remote viewers over SSH, and the raw event
stream can be journaled for replay.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/wlseat/wlseat.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// initConfig loads the configuration and applies the logging settings
func initConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = config.Get().Logging.LogLevel
	}
	logger.SetLevel(level)
	return nil
}
