package config

import "github.com/xob0t/covercard/pkg/glyph"

const (
	defaultConfigPath       = "~/.config/covercard/config.toml"
	defaultProjectConfig    = "covercard.toml"
	defaultSettingsFile     = "~/.config/covercard/settings.json"
	defaultLogDir           = "~/.local/share/covercard/logs"
	defaultAlign            = "center"
	defaultTextColor        = "#ffffff"
	defaultInsetOffset      = -20
	defaultProgress         = 0.3
	defaultDebounceMS       = 300
	defaultSMTPPort         = 587
	defaultSMTPFallbackPort = 465
	defaultSMTPTimeout      = 10
	defaultSubject          = "Your cover"
	defaultBody             = "Your cover card and the plain crop are attached."
	defaultAPIBind          = "127.0.0.1:7690"
	defaultMaxUploadMB      = 25
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Render: Render{
			Title:            "",
			Artist:           "",
			Blur:             60,
			Align:            defaultAlign,
			TextColor:        defaultTextColor,
			InsetOffset:      defaultInsetOffset,
			ProgressFraction: defaultProgress,
			DebounceMS:       defaultDebounceMS,
		},
		Fonts: Fonts{
			Candidates: append([]string(nil), glyph.DefaultCandidates...),
			Dirs:       append([]string(nil), glyph.DefaultDirs...),
		},
		Delivery: Delivery{
			Port:           defaultSMTPPort,
			FallbackPort:   defaultSMTPFallbackPort,
			Subject:        defaultSubject,
			Body:           defaultBody,
			TimeoutSeconds: defaultSMTPTimeout,
		},
		Paths: Paths{
			SettingsFile: defaultSettingsFile,
			LogDir:       defaultLogDir,
		},
		Server: Server{
			Bind:        defaultAPIBind,
			MaxUploadMB: defaultMaxUploadMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
