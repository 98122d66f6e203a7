package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("missing config must not fail: %v", err)
	}
	if cfg.Workflow.ItemDelayMS != defaultItemDelayMS {
		t.Fatalf("expected default item delay, got %d", cfg.Workflow.ItemDelayMS)
	}
	if cfg.Workflow.ClipPollMaxAttempts != defaultClipPollMaxAttempts {
		t.Fatalf("expected default poll budget, got %d", cfg.Workflow.ClipPollMaxAttempts)
	}
	if !cfg.Workflow.Autosave {
		t.Fatal("autosave must default on")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+dataDir+`"

[workflow]
item_delay_ms = 250
clip_poll_max_attempts = 10

[scriptgen]
model = "custom/model"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("data dir not applied: %q", cfg.Paths.DataDir)
	}
	if cfg.Workflow.ItemDelayMS != 250 || cfg.Workflow.ClipPollMaxAttempts != 10 {
		t.Fatalf("workflow overrides not applied: %+v", cfg.Workflow)
	}
	if cfg.ScriptGen.Model != "custom/model" {
		t.Fatalf("model override not applied: %q", cfg.ScriptGen.Model)
	}
	// Untouched sections keep their defaults.
	if cfg.ScriptGen.BaseURL != defaultScriptGenBaseURL {
		t.Fatalf("unset fields must keep defaults: %q", cfg.ScriptGen.BaseURL)
	}
}

func TestLoadEnvironmentOverridesCredentials(t *testing.T) {
	t.Setenv("CLIPFORGE_SCRIPTGEN_API_KEY", "env-script-key")
	t.Setenv("CLIPFORGE_IMAGEGEN_API_KEY", "env-image-key")
	t.Setenv("CLIPFORGE_NTFY_TOPIC", "https://ntfy.sh/clipforge-test")

	path := writeConfig(t, `
[scriptgen]
api_key = "file-key"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScriptGen.APIKey != "env-script-key" {
		t.Fatalf("environment must win over the file, got %q", cfg.ScriptGen.APIKey)
	}
	if cfg.ImageGen.APIKey != "env-image-key" {
		t.Fatalf("image key not applied: %q", cfg.ImageGen.APIKey)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/clipforge-test" {
		t.Fatalf("ntfy topic not applied: %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[workflow]
clip_poll_max_attempts = 0

[logging]
format = "xml"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "clip_poll_max_attempts") || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("validation must report every problem: %v", err)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "[workflow\nbroken")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := ExpandPath("~/x/y")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "x", "y") {
		t.Fatalf("expansion wrong: %q", got)
	}
	if got, _ := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute paths pass through, got %q", got)
	}
	if got, _ := ExpandPath("~"); got != home {
		t.Fatalf("bare tilde expands to home, got %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
	}
}
