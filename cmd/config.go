package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wlseat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Input]")
		logger.Infof("  Focus Policy: %s", cfg.Input.FocusPolicy)
		logger.Infof("  Translator: %s", cfg.Input.Translator)
		if cfg.Input.TargetLayout != "" {
			logger.Infof("  Target Layout: %s", cfg.Input.TargetLayout)
		}
		logger.Infof("  Release File: %s", cfg.Input.ReleaseFile)

		logger.Info("\n[Window]")
		logger.Infof("  Probe: %v", cfg.Window.Probe)
		logger.Infof("  Title: %s", cfg.Window.Title)
		logger.Infof("  Size: %dx%d", cfg.Window.Width, cfg.Window.Height)
		logger.Infof("  Color: %s", cfg.Window.Color)
		logger.Infof("  Hide Cursor: %v", cfg.Window.HideCursor)

		logger.Info("\n[IPC]")
		logger.Infof("  Socket: %s", cfg.IPC.SocketPath)
		logger.Infof("  Poll Interval: %d ms", cfg.IPC.PollInterval)

		logger.Info("\n[SSH]")
		logger.Infof("  Enabled: %v", cfg.SSH.Enabled)
		logger.Infof("  Listen: %s:%d", cfg.SSH.BindAddress, cfg.SSH.Port)
		logger.Infof("  Host Key: %s", cfg.SSH.HostKeyPath)
		logger.Infof("  Max Clients: %d", cfg.SSH.MaxClients)
		logger.Infof("  Whitelist Only: %v", cfg.SSH.WhitelistOnly)
		if len(cfg.SSH.Whitelist) > 0 {
			logger.Info("  Whitelist:")
			for _, fp := range cfg.SSH.Whitelist {
				logger.Infof("    - %s", fp)
			}
		}

		logger.Info("\n[Journal]")
		logger.Infof("  Enabled: %v", cfg.Journal.Enabled)
		logger.Infof("  Path: %s", cfg.Journal.Path)

		logger.Info("\n[Logging]")
		logger.Infof("  File Logging: %v", cfg.Logging.FileLogging)
		logger.Infof("  Log File: %s", cfg.Logging.LogFile)
		if cfg.Logging.LogLevel != "" {
			logger.Infof("  Log Level: %s", cfg.Logging.LogLevel)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file",
	Long: `Create the configuration file, asking for the main settings. Use --defaults
to write the defaults without asking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		cfg := *config.Get()
		if defaults, _ := cmd.Flags().GetBool("defaults"); !defaults {
			if err := runInitForm(&cfg); err != nil {
				return err
			}
		}

		if err := config.Apply(&cfg); err != nil {
			return err
		}
		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'wlseat run' to start tracking")
		logger.Info("  - Use 'wlseat config show' to view current settings")
		return nil
	},
}

// runInitForm asks for the settings most people change
func runInitForm(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Keys on focus loss").
				Description("What happens to pressed keys when the window loses keyboard focus").
				Options(
					huh.NewOption("Release them", "clear"),
					huh.NewOption("Keep them until released", "retain"),
				).
				Value(&cfg.Input.FocusPolicy),
			huh.NewSelect[string]().
				Title("Key translation").
				Options(
					huh.NewOption("Use the compositor keymap", "keymap"),
					huh.NewOption("Raw evdev codes", "none"),
				).
				Value(&cfg.Input.Translator),
			huh.NewInput().
				Title("Target layout").
				Description("Remap keys into this layout (us, fr), empty keeps the compositor's").
				Value(&cfg.Input.TargetLayout),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Map a probe window?").
				Description("Input focus is only delivered to a mapped window").
				Value(&cfg.Window.Probe),
			huh.NewConfirm().
				Title("Serve the live view over SSH?").
				Value(&cfg.SSH.Enabled),
			huh.NewConfirm().
				Title("Record events to the journal?").
				Value(&cfg.Journal.Enabled),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration cancelled: %w", err)
	}
	return nil
}

var configSSHCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Manage SSH whitelist",
}

var configSSHListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelisted SSH keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		if len(cfg.SSH.Whitelist) == 0 {
			logger.Info("No SSH keys in whitelist")
		} else {
			logger.Info("Whitelisted SSH Keys:")
			for i, fp := range cfg.SSH.Whitelist {
				logger.Infof("%d. %s", i+1, fp)
			}
		}

		if cfg.SSH.WhitelistOnly {
			logger.Info("\nWhitelist-only mode is ENABLED")
		} else {
			logger.Info("\nWhitelist-only mode is DISABLED")
			logger.Info("All SSH keys are accepted")
		}
		return nil
	},
}

var configSSHAddCmd = &cobra.Command{
	Use:   "add <fingerprint>",
	Short: "Add SSH key to whitelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.AddSSHKeyToWhitelist(args[0]); err != nil {
			return err
		}
		logger.Infof("Added SSH key to whitelist: %s", args[0])
		return nil
	},
}

var configSSHRemoveCmd = &cobra.Command{
	Use:   "remove <fingerprint>",
	Short: "Remove SSH key from whitelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RemoveSSHKeyFromWhitelist(args[0]); err != nil {
			return err
		}
		logger.Infof("Removed SSH key from whitelist: %s", args[0])
		return nil
	},
}

var configSSHClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all SSH keys from whitelist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		count := len(cfg.SSH.Whitelist)
		if count == 0 {
			logger.Info("Whitelist is already empty")
			return nil
		}

		cfg.SSH.Whitelist = []string{}
		if err := config.Apply(&cfg); err != nil {
			return err
		}
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Cleared %d SSH key(s) from whitelist", count)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSSHCmd)

	configSSHCmd.AddCommand(configSSHListCmd)
	configSSHCmd.AddCommand(configSSHAddCmd)
	configSSHCmd.AddCommand(configSSHRemoveCmd)
	configSSHCmd.AddCommand(configSSHClearCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().Bool("defaults", false, "Write defaults without asking")

	rootCmd.AddCommand(configCmd)
}
