package config

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/xob0t/covercard/pkg/filter"
	"github.com/xob0t/covercard/pkg/glyph"
)

// Validate ensures the configuration is usable for rendering. Relay settings
// are checked separately by ValidateDelivery since rendering never needs them.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateDeliveryRanges(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Blur < 0 || c.Render.Blur > filter.MaxStrength {
		return fmt.Errorf("render.blur must be between 0 and %d", filter.MaxStrength)
	}
	if _, err := glyph.ParseAlign(c.Render.Align); err != nil {
		return fmt.Errorf("render.align: %w", err)
	}
	if _, err := glyph.ParseColor(c.Render.TextColor); err != nil {
		return fmt.Errorf("render.text_color: %w", err)
	}
	if c.Render.ProgressFraction < 0 || c.Render.ProgressFraction > 1 {
		return errors.New("render.progress_fraction must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateDeliveryRanges() error {
	for name, port := range map[string]int{
		"delivery.port":          c.Delivery.Port,
		"delivery.fallback_port": c.Delivery.FallbackPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535", name)
		}
	}
	if c.Delivery.DefaultRecipient != "" {
		if _, err := mail.ParseAddress(c.Delivery.DefaultRecipient); err != nil {
			return fmt.Errorf("delivery.default_recipient: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

// ValidateDelivery ensures a cover can be mailed with the current settings.
func (c *Config) ValidateDelivery() error {
	if c.Delivery.Host == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("delivery.host is required. Edit %s (create with 'covercard config init')", defaultPath)
	}
	if c.Delivery.From == "" {
		return errors.New("delivery.from is required (or set delivery.username to an address)")
	}
	if _, err := mail.ParseAddress(c.Delivery.From); err != nil {
		return fmt.Errorf("delivery.from: %w", err)
	}
	if c.Delivery.Username != "" && c.Delivery.Password == "" {
		return errors.New("delivery.password is required when delivery.username is set. Set COVERCARD_SMTP_PASSWORD or edit the config")
	}
	return nil
}
