package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/xob0t/covercard/internal/config"
	"github.com/xob0t/covercard/internal/logging"
	"github.com/xob0t/covercard/internal/settings"
	"github.com/xob0t/covercard/pkg/template"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger from the logging section. Log lines
// go to stderr so command output on stdout stays clean.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		paths := []string{"stderr"}
		if file := cfg.LogFile(); file != "" {
			paths = append(paths, file)
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: paths,
		})
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// newRenderer returns a renderer using the configured layout and fonts.
func (c *commandContext) newRenderer(logger *slog.Logger, overrides ...template.Option) (*template.Renderer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	opts := []template.Option{
		template.WithLayout(layout),
		template.WithFonts(cfg.FontResolver()),
		template.WithLogger(logging.NewComponentLogger(logger, "renderer")),
	}
	return template.NewRenderer(append(opts, overrides...)...)
}

func (c *commandContext) recipientStore() (*settings.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return settings.NewStore(cfg.Paths.SettingsFile, cfg.Delivery.DefaultRecipient), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
