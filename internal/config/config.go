package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport names accepted by watch.transport.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Integration modes accepted by watch.mode.
const (
	ModePush = "push"
	ModePoll = "poll"
)

// Output modes accepted by output.mode.
const (
	OutputTUI   = "tui"
	OutputPlain = "plain"
	OutputJSON  = "json"
)

// Config application configuration structure
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig locates the capture server endpoints
type ServerConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	EventsPath   string        `yaml:"events_path" mapstructure:"events_path"`
	WSPath       string        `yaml:"ws_path" mapstructure:"ws_path"`
	RequestsPath string        `yaml:"requests_path" mapstructure:"requests_path"`
	ClearPath    string        `yaml:"clear_path" mapstructure:"clear_path"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// WatchConfig live view behaviour
type WatchConfig struct {
	Transport     string `yaml:"transport" mapstructure:"transport"`
	Mode          string `yaml:"mode" mapstructure:"mode"`
	ShowHeaders   bool   `yaml:"show_headers" mapstructure:"show_headers"`
	InitialFilter string `yaml:"initial_filter" mapstructure:"initial_filter"`
	// StoreWarnThreshold logs a warning once the store grows past it (0 = never)
	StoreWarnThreshold int  `yaml:"store_warn_threshold" mapstructure:"store_warn_threshold"`
	ConfirmClear       bool `yaml:"confirm_clear" mapstructure:"confirm_clear"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	Mode     string         `yaml:"mode" mapstructure:"mode"`
	Locale   string         `yaml:"locale" mapstructure:"locale"`
	BodyView BodyViewConfig `yaml:"body_view" mapstructure:"body_view"`
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level" mapstructure:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable" mapstructure:"enable"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// BodyViewConfig controls body formatting in the detail view
type BodyViewConfig struct {
	Enable          bool             `yaml:"enable" mapstructure:"enable"`
	MaxPreviewBytes int              `yaml:"max_preview_bytes" mapstructure:"max_preview_bytes"`
	Json            JSONViewConfig   `yaml:"json" mapstructure:"json"`
	Form            FormViewConfig   `yaml:"form" mapstructure:"form"`
	XML             XMLViewConfig    `yaml:"xml" mapstructure:"xml"`
	HTML            HTMLViewConfig   `yaml:"html" mapstructure:"html"`
	Binary          BinaryViewConfig `yaml:"binary" mapstructure:"binary"`
}

// JSONViewConfig JSON display
type JSONViewConfig struct {
	Enable         bool `yaml:"enable" mapstructure:"enable"`
	Pretty         bool `yaml:"pretty" mapstructure:"pretty"`
	MaxIndentBytes int  `yaml:"max_indent_bytes" mapstructure:"max_indent_bytes"`
}

// FormViewConfig form display
type FormViewConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
}

// XMLViewConfig XML display
type XMLViewConfig struct {
	Enable       bool `yaml:"enable" mapstructure:"enable"`
	Pretty       bool `yaml:"pretty" mapstructure:"pretty"`
	StripControl bool `yaml:"strip_control" mapstructure:"strip_control"`
}

// HTMLViewConfig HTML display
type HTMLViewConfig struct {
	Enable       bool `yaml:"enable" mapstructure:"enable"`
	Pretty       bool `yaml:"pretty" mapstructure:"pretty"`
	StripControl bool `yaml:"strip_control" mapstructure:"strip_control"`
}

// BinaryViewConfig binary display
type BinaryViewConfig struct {
	HexPreviewEnable bool `yaml:"hex_preview_enable" mapstructure:"hex_preview_enable"`
	HexPreviewBytes  int  `yaml:"hex_preview_bytes" mapstructure:"hex_preview_bytes"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("REQWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("reqwatch")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reqwatch")
		v.AddConfigPath("/etc/reqwatch")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Printf("Config file loaded: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Unmarshal skips bound flags and env-only keys; read them back through viper
	applyDefaults(&config, v)

	return &config, nil
}

func applyDefaults(cfg *Config, v *viper.Viper) {
	cfg.Server.BaseURL = v.GetString("server.base_url")
	cfg.Server.EventsPath = v.GetString("server.events_path")
	cfg.Server.WSPath = v.GetString("server.ws_path")
	cfg.Server.RequestsPath = v.GetString("server.requests_path")
	cfg.Server.ClearPath = v.GetString("server.clear_path")
	cfg.Server.Timeout = v.GetDuration("server.timeout")

	cfg.Watch.Transport = v.GetString("watch.transport")
	cfg.Watch.Mode = v.GetString("watch.mode")
	cfg.Watch.ShowHeaders = v.GetBool("watch.show_headers")
	cfg.Watch.InitialFilter = v.GetString("watch.initial_filter")
	cfg.Watch.StoreWarnThreshold = v.GetInt("watch.store_warn_threshold")
	cfg.Watch.ConfirmClear = v.GetBool("watch.confirm_clear")

	cfg.Output.Mode = v.GetString("output.mode")
	cfg.Output.Locale = v.GetString("output.locale")
	cfg.Output.BodyView.Enable = v.GetBool("output.body_view.enable")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.FileLogging.Enable = v.GetBool("log.file_logging.enable")
	cfg.Log.FileLogging.Compress = v.GetBool("log.file_logging.compress")
	if cfg.Log.FileLogging.Path == "" {
		cfg.Log.FileLogging.Path = v.GetString("log.file_logging.path")
	}
	if cfg.Log.FileLogging.MaxSizeMB == 0 {
		cfg.Log.FileLogging.MaxSizeMB = v.GetInt("log.file_logging.max_size_mb")
	}
	if cfg.Log.FileLogging.MaxBackups == 0 {
		cfg.Log.FileLogging.MaxBackups = v.GetInt("log.file_logging.max_backups")
	}
	if cfg.Log.FileLogging.MaxAgeDays == 0 {
		cfg.Log.FileLogging.MaxAgeDays = v.GetInt("log.file_logging.max_age_days")
	}
}

func setDefaults(v *viper.Viper) {
	// Server endpoints
	v.SetDefault("server.base_url", "http://localhost:6969")
	v.SetDefault("server.events_path", "/SSEUpdate")
	v.SetDefault("server.ws_path", "/ws")
	v.SetDefault("server.requests_path", "/requests")
	v.SetDefault("server.clear_path", "/clear")
	v.SetDefault("server.timeout", 10*time.Second)

	// Live view
	v.SetDefault("watch.transport", TransportSSE)
	v.SetDefault("watch.mode", ModePush)
	v.SetDefault("watch.show_headers", false)
	v.SetDefault("watch.initial_filter", "")
	v.SetDefault("watch.store_warn_threshold", 10000)
	v.SetDefault("watch.confirm_clear", true)

	// Output
	v.SetDefault("output.mode", OutputTUI)
	v.SetDefault("output.locale", "en")
	v.SetDefault("output.body_view.enable", true)
	v.SetDefault("output.body_view.max_preview_bytes", int(32*1024))
	v.SetDefault("output.body_view.json.enable", true)
	v.SetDefault("output.body_view.json.pretty", true)
	v.SetDefault("output.body_view.json.max_indent_bytes", int(128*1024))
	v.SetDefault("output.body_view.form.enable", true)
	v.SetDefault("output.body_view.xml.enable", true)
	v.SetDefault("output.body_view.xml.pretty", true)
	v.SetDefault("output.body_view.xml.strip_control", true)
	v.SetDefault("output.body_view.html.enable", true)
	v.SetDefault("output.body_view.html.pretty", false)
	v.SetDefault("output.body_view.html.strip_control", true)
	v.SetDefault("output.body_view.binary.hex_preview_enable", false)
	v.SetDefault("output.body_view.binary.hex_preview_bytes", 256)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "./reqwatch.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 5)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)
}

// Validate checks every enumerated value and endpoint path, normalising case.
func (c *Config) Validate() error {
	base, err := url.Parse(strings.TrimSpace(c.Server.BaseURL))
	if err != nil {
		return fmt.Errorf("invalid server base_url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return fmt.Errorf("server base_url must use http or https, got %q", c.Server.BaseURL)
	}
	if base.Host == "" {
		return fmt.Errorf("server base_url must include a host")
	}

	paths := map[string]string{
		"events_path":   c.Server.EventsPath,
		"ws_path":       c.Server.WSPath,
		"requests_path": c.Server.RequestsPath,
		"clear_path":    c.Server.ClearPath,
	}
	for name, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("server %s must start with '/'", name)
		}
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server timeout cannot be negative")
	}

	c.Watch.Transport = strings.ToLower(strings.TrimSpace(c.Watch.Transport))
	switch c.Watch.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("watch transport must be 'sse' or 'websocket'")
	}

	c.Watch.Mode = strings.ToLower(strings.TrimSpace(c.Watch.Mode))
	switch c.Watch.Mode {
	case ModePush, ModePoll:
	default:
		return fmt.Errorf("watch mode must be 'push' or 'poll'")
	}
	if c.Watch.StoreWarnThreshold < 0 {
		return fmt.Errorf("watch store_warn_threshold cannot be negative")
	}

	c.Output.Mode = strings.ToLower(strings.TrimSpace(c.Output.Mode))
	switch c.Output.Mode {
	case "":
		c.Output.Mode = OutputTUI
	case OutputTUI, OutputPlain, OutputJSON:
	default:
		return fmt.Errorf("output mode must be 'tui', 'plain' or 'json'")
	}
	if err := validateBodyViewConfig(&c.Output.BodyView); err != nil {
		return err
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true,
		"error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.FileLogging.Enable && strings.TrimSpace(c.Log.FileLogging.Path) == "" {
		return fmt.Errorf("log file path cannot be empty when file logging is enabled")
	}

	return nil
}

func validateBodyViewConfig(cfg *BodyViewConfig) error {
	if cfg.MaxPreviewBytes < 0 {
		return fmt.Errorf("output.body_view.max_preview_bytes cannot be negative")
	}
	if cfg.Json.MaxIndentBytes < 0 {
		return fmt.Errorf("output.body_view.json.max_indent_bytes cannot be negative")
	}
	if cfg.Binary.HexPreviewBytes < 0 {
		return fmt.Errorf("output.body_view.binary.hex_preview_bytes cannot be negative")
	}
	return nil
}

// Endpoint joins the base URL and an endpoint path.
func (s ServerConfig) Endpoint(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}
