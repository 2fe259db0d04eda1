// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Window  WindowConfig  `mapstructure:"window"`
	IPC     IPCConfig     `mapstructure:"ipc"`
	SSH     SSHConfig     `mapstructure:"ssh"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// InputConfig contains input tracking settings
type InputConfig struct {
	FocusPolicy  string `mapstructure:"focus_policy"`  // "clear" or "retain"
	Translator   string `mapstructure:"translator"`    // "keymap" or "none"
	TargetLayout string `mapstructure:"target_layout"` // Remap keys into this layout, empty disables
	ReleaseFile  string `mapstructure:"release_file"`  // Touching this file releases stuck input
}

// WindowConfig contains probe window settings
type WindowConfig struct {
	Probe      bool   `mapstructure:"probe"`
	Title      string `mapstructure:"title"`
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Color      string `mapstructure:"color"` // #RRGGBB or #AARRGGBB
	HideCursor bool   `mapstructure:"hide_cursor"`
}

// IPCConfig contains the control socket settings
type IPCConfig struct {
	SocketPath   string `mapstructure:"socket_path"`
	PollInterval int    `mapstructure:"poll_interval_ms"` // watch refresh interval
}

// SSHConfig contains the remote monitor settings
type SSHConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	BindAddress   string   `mapstructure:"bind_address"`
	Port          int      `mapstructure:"port"`
	HostKeyPath   string   `mapstructure:"host_key_path"`
	MaxClients    int      `mapstructure:"max_clients"`    // 0 means unlimited
	Whitelist     []string `mapstructure:"whitelist"`      // Allowed SSH key fingerprints
	WhitelistOnly bool     `mapstructure:"whitelist_only"` // Only allow whitelisted keys
}

// JournalConfig contains event journal settings
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogFile     string `mapstructure:"log_file"`
	LogLevel    string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Input: InputConfig{
			FocusPolicy:  "clear",
			Translator:   "keymap",
			TargetLayout: "",
			ReleaseFile:  filepath.Join(os.TempDir(), "wlseat-release"),
		},
		Window: WindowConfig{
			Probe:      true,
			Title:      "wlseat",
			Width:      320,
			Height:     240,
			Color:      "#303446",
			HideCursor: false,
		},
		IPC: IPCConfig{
			SocketPath:   defaultSocketPath(),
			PollInterval: 100,
		},
		SSH: SSHConfig{
			Enabled:       false,
			BindAddress:   "127.0.0.1",
			Port:          2222,
			HostKeyPath:   filepath.Join(stateDir(), "ssh_host_key"),
			MaxClients:    4,
			Whitelist:     []string{},
			WhitelistOnly: true,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(stateDir(), "journal.db"),
		},
		Logging: LoggingConfig{
			FileLogging: false,
			LogFile:     filepath.Join(stateDir(), "wlseat.log"),
			LogLevel:    "", // Empty means use LOG_LEVEL env var
		},
	}

	mu  sync.RWMutex
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wlseat")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !(configPathOverride != "" && os.IsNotExist(err)) {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
		// Config file not found, use defaults
	}

	return reload()
}

// keys flattens c into viper keys
func keys(c *Config) map[string]any {
	return map[string]any{
		"input.focus_policy":  c.Input.FocusPolicy,
		"input.translator":    c.Input.Translator,
		"input.target_layout": c.Input.TargetLayout,
		"input.release_file":  c.Input.ReleaseFile,

		"window.probe":       c.Window.Probe,
		"window.title":       c.Window.Title,
		"window.width":       c.Window.Width,
		"window.height":      c.Window.Height,
		"window.color":       c.Window.Color,
		"window.hide_cursor": c.Window.HideCursor,

		"ipc.socket_path":      c.IPC.SocketPath,
		"ipc.poll_interval_ms": c.IPC.PollInterval,

		"ssh.enabled":        c.SSH.Enabled,
		"ssh.bind_address":   c.SSH.BindAddress,
		"ssh.port":           c.SSH.Port,
		"ssh.host_key_path":  c.SSH.HostKeyPath,
		"ssh.max_clients":    c.SSH.MaxClients,
		"ssh.whitelist":      c.SSH.Whitelist,
		"ssh.whitelist_only": c.SSH.WhitelistOnly,

		"journal.enabled": c.Journal.Enabled,
		"journal.path":    c.Journal.Path,

		"logging.file_logging": c.Logging.FileLogging,
		"logging.log_file":     c.Logging.LogFile,
		"logging.log_level":    c.Logging.LogLevel,
	}
}

func setDefaults() {
	for k, v := range keys(&DefaultConfig) {
		viper.SetDefault(k, v)
	}
}

func reload() error {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	Set(c)
	return nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Input.FocusPolicy {
	case "clear", "retain":
	default:
		return fmt.Errorf("input.focus_policy must be \"clear\" or \"retain\", got %q", c.Input.FocusPolicy)
	}
	switch c.Input.Translator {
	case "keymap", "none":
	default:
		return fmt.Errorf("input.translator must be \"keymap\" or \"none\", got %q", c.Input.Translator)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := ParseColor(c.Window.Color); err != nil {
		return fmt.Errorf("window.color: %w", err)
	}
	if c.SSH.Enabled && (c.SSH.Port <= 0 || c.SSH.Port > 65535) {
		return fmt.Errorf("ssh.port out of range: %d", c.SSH.Port)
	}
	if c.SSH.MaxClients < 0 {
		return fmt.Errorf("ssh.max_clients must not be negative")
	}
	return nil
}

// Watch reloads the configuration when the file changes and passes the new
// value to onChange. Invalid edits are reported through onError and the
// previous configuration stays in effect.
func Watch(onChange func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := reload(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(Get())
		}
	})
	viper.WatchConfig()
}

// Get returns the current configuration
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if cfg == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	mu.Lock()
	cfg = c
	mu.Unlock()
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Apply stores c in viper and as the current configuration
func Apply(c *Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for k, v := range keys(c) {
		viper.Set(k, v)
	}
	Set(c)
	return nil
}

// AddSSHKeyToWhitelist adds an SSH key fingerprint to the whitelist and saves
// the configuration
func AddSSHKeyToWhitelist(fingerprint string) error {
	c := *Get()
	for _, fp := range c.SSH.Whitelist {
		if fp == fingerprint {
			return fmt.Errorf("key already whitelisted")
		}
	}

	c.SSH.Whitelist = append(append([]string{}, c.SSH.Whitelist...), fingerprint)
	if err := Apply(&c); err != nil {
		return err
	}
	return Save()
}

// RemoveSSHKeyFromWhitelist removes an SSH key fingerprint from the whitelist
func RemoveSSHKeyFromWhitelist(fingerprint string) error {
	c := *Get()
	for i, fp := range c.SSH.Whitelist {
		if fp == fingerprint {
			list := append([]string{}, c.SSH.Whitelist[:i]...)
			c.SSH.Whitelist = append(list, c.SSH.Whitelist[i+1:]...)
			if err := Apply(&c); err != nil {
				return err
			}
			return Save()
		}
	}
	return fmt.Errorf("key not found in whitelist")
}

// IsSSHKeyWhitelisted checks if an SSH key fingerprint is whitelisted
func IsSSHKeyWhitelisted(fingerprint string) bool {
	for _, fp := range Get().SSH.Whitelist {
		if fp == fingerprint {
			return true
		}
	}
	return false
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	return filepath.Join(configDir(), "wlseat.toml")
}

// ParseColor parses #RRGGBB or #AARRGGBB into ARGB. Colors without alpha are
// opaque.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xff000000
	}
	return uint32(v), nil
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wlseat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "wlseat")
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "wlseat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, ".local", "state", "wlseat")
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "wlseat.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("wlseat-%d.sock", os.Getuid()))
}
