package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeFonts()
	c.normalizeDelivery()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SettingsFile) == "" {
		c.Paths.SettingsFile = defaultSettingsFile
	}
	if c.Paths.SettingsFile, err = expandPath(c.Paths.SettingsFile); err != nil {
		return fmt.Errorf("paths.settings_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Title = strings.TrimSpace(c.Render.Title)
	c.Render.Artist = strings.TrimSpace(c.Render.Artist)
	c.Render.Align = strings.ToLower(strings.TrimSpace(c.Render.Align))
	if c.Render.Align == "" {
		c.Render.Align = defaultAlign
	}
	c.Render.TextColor = strings.TrimSpace(c.Render.TextColor)
	if c.Render.TextColor == "" {
		c.Render.TextColor = defaultTextColor
	}
	if c.Render.DebounceMS <= 0 {
		c.Render.DebounceMS = defaultDebounceMS
	}
}

func (c *Config) normalizeFonts() {
	if len(c.Fonts.Candidates) == 0 {
		c.Fonts.Candidates = Default().Fonts.Candidates
	}
	if len(c.Fonts.Dirs) == 0 {
		c.Fonts.Dirs = Default().Fonts.Dirs
	}
}

func (c *Config) normalizeDelivery() {
	c.Delivery.Host = strings.TrimSpace(c.Delivery.Host)
	c.Delivery.From = strings.TrimSpace(c.Delivery.From)
	c.Delivery.DefaultRecipient = strings.TrimSpace(c.Delivery.DefaultRecipient)
	c.Delivery.Username = strings.TrimSpace(c.Delivery.Username)
	if c.Delivery.Username == "" {
		if value, ok := os.LookupEnv("COVERCARD_SMTP_USERNAME"); ok {
			c.Delivery.Username = strings.TrimSpace(value)
		}
	}
	if c.Delivery.Password == "" {
		if value, ok := os.LookupEnv("COVERCARD_SMTP_PASSWORD"); ok {
			c.Delivery.Password = value
		}
	}
	if c.Delivery.From == "" && strings.Contains(c.Delivery.Username, "@") {
		c.Delivery.From = c.Delivery.Username
	}
	if c.Delivery.Port == 0 {
		c.Delivery.Port = defaultSMTPPort
	}
	if c.Delivery.FallbackPort == 0 {
		c.Delivery.FallbackPort = defaultSMTPFallbackPort
	}
	if c.Delivery.TimeoutSeconds <= 0 {
		c.Delivery.TimeoutSeconds = defaultSMTPTimeout
	}
	if strings.TrimSpace(c.Delivery.Subject) == "" {
		c.Delivery.Subject = defaultSubject
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultAPIBind
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
