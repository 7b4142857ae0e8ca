package main

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

type cliTestEnv struct {
	baseDir      string
	configPath   string
	settingsPath string
}

// setupCLITestEnv isolates HOME and the working directory and writes a
// config whose files all live under a temp dir. extra is appended verbatim.
func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("COVERCARD_SMTP_USERNAME", "")
	t.Setenv("COVERCARD_SMTP_PASSWORD", "")
	t.Chdir(base)

	env := &cliTestEnv{
		baseDir:      base,
		configPath:   filepath.Join(base, "config.toml"),
		settingsPath: filepath.Join(base, "state", "settings.json"),
	}
	content := fmt.Sprintf(`[paths]
settings_file = %q
log_dir = %q

[fonts]
candidates = ["missing-font.ttf"]
dirs = [""]

[logging]
level = "error"
`, env.settingsPath, filepath.Join(base, "logs"))
	if extra != "" {
		content += "\n" + extra
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestPhoto(t *testing.T, dir string) string {
	t.Helper()
	img := imaging.New(240, 320, color.NRGBA{R: 180, G: 60, B: 40, A: 255})
	path := filepath.Join(dir, "photo.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save photo: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
