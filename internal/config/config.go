// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Index() IndexConfig

	SetBrowserHeadless(bool)
	SetIndexEvaluateScripts(bool)
	SetIndexWithoutFormControls(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	IndexCfg   IndexConfig   `mapstructure:"index" yaml:"index"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Index() IndexConfig     { return c.IndexCfg }

func (c *Config) SetBrowserHeadless(b bool)         { c.BrowserCfg.Headless = b }
func (c *Config) SetIndexEvaluateScripts(b bool)    { c.IndexCfg.EvaluateScripts = b }
func (c *Config) SetIndexWithoutFormControls(b bool) { c.IndexCfg.WithoutFormControls = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the colors for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig configures the headless browser used for live captures.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleWait        time.Duration  `mapstructure:"settle_wait" yaml:"settle_wait"`
	CaptureListeners  bool           `mapstructure:"capture_listeners" yaml:"capture_listeners"`
	// ListenerTimeout bounds listener capture separately from navigation.
	ListenerTimeout   time.Duration  `mapstructure:"listener_timeout" yaml:"listener_timeout"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// IndexConfig controls how static documents are indexed.
type IndexConfig struct {
	// EvaluateScripts runs inline scripts to discover script-registered listeners.
	EvaluateScripts     bool          `mapstructure:"evaluate_scripts" yaml:"evaluate_scripts"`
	ScriptTimeout       time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
	MaxScriptBytes      int           `mapstructure:"max_script_bytes" yaml:"max_script_bytes"`
	MaxScriptCallbacks  int           `mapstructure:"max_script_callbacks" yaml:"max_script_callbacks"`
	WithoutFormControls bool          `mapstructure:"without_form_controls" yaml:"without_form_controls"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "litmus")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_wait", "500ms")
	v.SetDefault("browser.capture_listeners", true)
	v.SetDefault("browser.listener_timeout", "30s")
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 800})

	// -- Index --
	v.SetDefault("index.evaluate_scripts", true)
	v.SetDefault("index.script_timeout", "2s")
	v.SetDefault("index.max_script_bytes", 256<<10)
	v.SetDefault("index.max_script_callbacks", 1000)
	v.SetDefault("index.without_form_controls", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LoggerCfg.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be 'console' or 'json', got '%s'", c.LoggerCfg.Format)
	}
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.IndexCfg.Validate(); err != nil {
		return fmt.Errorf("index configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the BrowserConfig settings.
func (b *BrowserConfig) Validate() error {
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	if b.CaptureListeners && b.ListenerTimeout <= 0 {
		return fmt.Errorf("listener_timeout must be a positive duration when capture_listeners is enabled")
	}
	if b.SettleWait < 0 {
		return fmt.Errorf("settle_wait must not be negative")
	}
	for _, key := range []string{"width", "height"} {
		if v, ok := b.Viewport[key]; ok && v <= 0 {
			return fmt.Errorf("viewport.%s must be a positive integer", key)
		}
	}
	return nil
}

// Validate checks the IndexConfig settings. Script limits only matter when
// scripts are evaluated.
func (i *IndexConfig) Validate() error {
	if !i.EvaluateScripts {
		return nil
	}
	if i.ScriptTimeout <= 0 {
		return fmt.Errorf("script_timeout must be a positive duration")
	}
	if i.MaxScriptBytes <= 0 {
		return fmt.Errorf("max_script_bytes must be a positive integer")
	}
	if i.MaxScriptCallbacks <= 0 {
		return fmt.Errorf("max_script_callbacks must be a positive integer")
	}
	return nil
}
