package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/xob0t/covercard/pkg/delivery"
	"github.com/xob0t/covercard/pkg/glyph"
	"github.com/xob0t/covercard/pkg/template"
)

//go:embed sample_config.toml
var sampleConfig string

// Render contains the cover text defaults and layout choices.
type Render struct {
	Title            string  `toml:"title"`
	Artist           string  `toml:"artist"`
	Blur             int     `toml:"blur"`
	Align            string  `toml:"align"`
	TextColor        string  `toml:"text_color"`
	InsetOffset      int     `toml:"inset_offset"`
	ProgressFraction float64 `toml:"progress_fraction"`
	DebounceMS       int     `toml:"debounce_ms"`
}

// Fonts controls where text faces are probed.
type Fonts struct {
	Candidates []string `toml:"candidates"`
	Dirs       []string `toml:"dirs"`
}

// Delivery contains the mail relay used to send covers.
type Delivery struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	FallbackPort     int    `toml:"fallback_port"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`
	From             string `toml:"from"`
	Subject          string `toml:"subject"`
	Body             string `toml:"body"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	DefaultRecipient string `toml:"default_recipient"`
}

// Paths contains file locations.
type Paths struct {
	SettingsFile string `toml:"settings_file"`
	LogDir       string `toml:"log_dir"`
}

// Server contains the preview API settings.
type Server struct {
	Bind        string `toml:"bind"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   bool   `toml:"file"`
}

// Config encapsulates all configuration values for covercard.
//
// Configuration sections by subsystem:
//   - Render: default text, blur, alignment and layout tweaks
//   - Fonts: candidate font files and search directories
//   - Delivery: mail relay, sender identity and message text
//   - Paths: remembered-recipient file and log directory
//   - Server: preview API bind address and upload limit
//   - Logging: log format and level
type Config struct {
	Render   Render   `toml:"render"`
	Fonts    Fonts    `toml:"fonts"`
	Delivery Delivery `toml:"delivery"`
	Paths    Paths    `toml:"paths"`
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfig)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories covercard writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.SettingsFile)}
	if c.Logging.File {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFile returns the log file path, or "" when file logging is off.
func (c *Config) LogFile() string {
	if !c.Logging.File {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "covercard.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Layout returns the story layout with the configured overrides applied.
func (c *Config) Layout() (template.Layout, error) {
	l := template.DefaultLayout()
	align, err := glyph.ParseAlign(c.Render.Align)
	if err != nil {
		return l, fmt.Errorf("render.align: %w", err)
	}
	ink, err := glyph.ParseColor(c.Render.TextColor)
	if err != nil {
		return l, fmt.Errorf("render.text_color: %w", err)
	}
	l.Align = align
	l.TextColor = ink
	l.InsetOffset = c.Render.InsetOffset
	l.ProgressFraction = c.Render.ProgressFraction
	return l, l.Validate()
}

// FontResolver returns a resolver over the configured candidates.
func (c *Config) FontResolver() *glyph.FontResolver {
	fr := glyph.NewFontResolver()
	fr.Candidates = append([]string(nil), c.Fonts.Candidates...)
	fr.Dirs = append([]string(nil), c.Fonts.Dirs...)
	return fr
}

// InitialRequest returns the text and blur a new session starts with.
func (c *Config) InitialRequest() template.RenderRequest {
	return template.RenderRequest{
		Title:  c.Render.Title,
		Artist: c.Render.Artist,
		Blur:   c.Render.Blur,
	}
}

// Debounce returns the text debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Render.DebounceMS) * time.Millisecond
}

// Transport returns the relay settings for the delivery worker.
func (c *Config) Transport() delivery.TransportConfig {
	return delivery.TransportConfig{
		Host:         c.Delivery.Host,
		Port:         c.Delivery.Port,
		FallbackPort: c.Delivery.FallbackPort,
		Username:     c.Delivery.Username,
		Password:     c.Delivery.Password,
		From:         c.Delivery.From,
		Subject:      c.Delivery.Subject,
		Body:         c.Delivery.Body,
		Timeout:      time.Duration(c.Delivery.TimeoutSeconds) * time.Second,
	}
}
