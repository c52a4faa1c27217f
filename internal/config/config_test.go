package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"TASKCHAT_API_URL",
		"TASKCHAT_TIMEOUT_MS",
		"TASKCHAT_HOME",
		"TASKCHAT_LOG_LEVEL",
		"TASKCHAT_CONFIG_PATH",
		"TASKCHAT_LANG",
	} {
		t.Setenv(key, "")
	}
	work = t.TempDir()
	oldwd, _ := os.Getwd()
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return home, work
}

func TestDefaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Fatalf("base_url=%q", cfg.API.BaseURL)
	}
	if cfg.Storage.BaseDir != filepath.Join(home, ".taskchat") {
		t.Fatalf("base_dir=%q", cfg.Storage.BaseDir)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.UI.Mode != ModeAuto {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.Log.File != filepath.Join(home, ".taskchat", "logs", "taskchat.log") {
		t.Fatalf("log file=%q", cfg.Log.File)
	}
	if cfg.API.RequestTimeout().Milliseconds() != DefaultAPITimeoutMS {
		t.Fatalf("timeout=%v", cfg.API.RequestTimeout())
	}
}

func TestLoadJSONCAndPrecedence(t *testing.T) {
	home, _ := isolate(t)

	globalDir := filepath.Join(home, ".taskchat")
	if err := os.MkdirAll(globalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	globalCfg := `{
  // global
  "api": {"base_url": "http://global:8000", "timeout_ms": 5000},
  "ui": {"markdown": false}
}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalCfg), 0o644); err != nil {
		t.Fatal(err)
	}
	projectCfg := `{
  /* project wins */
  "api": {"base_url": "http://project:8000/"},
  "ui": {"mode": "REPL"}
}`
	if err := os.WriteFile("taskchat.config.json", []byte(projectCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://project:8000" {
		t.Fatalf("base_url=%q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutMS != 5000 {
		t.Fatalf("timeout_ms=%d", cfg.API.TimeoutMS)
	}
	if cfg.UI.Markdown {
		t.Fatalf("ui.markdown expected false")
	}
	if cfg.UI.Mode != ModeREPL {
		t.Fatalf("ui.mode=%q", cfg.UI.Mode)
	}
}

func TestExplicitPathMustExist(t *testing.T) {
	isolate(t)
	if _, err := Load("missing.json"); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestEnvOverride(t *testing.T) {
	_, work := isolate(t)
	t.Setenv("TASKCHAT_API_URL", "https://api.example.com/")
	t.Setenv("TASKCHAT_TIMEOUT_MS", "1500")
	t.Setenv("TASKCHAT_HOME", filepath.Join(work, "state"))
	t.Setenv("TASKCHAT_LANG", "zh-CN")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Fatalf("base_url=%q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutMS != 1500 {
		t.Fatalf("timeout_ms=%d", cfg.API.TimeoutMS)
	}
	if cfg.Storage.BaseDir != filepath.Join(work, "state") {
		t.Fatalf("base_dir=%q", cfg.Storage.BaseDir)
	}
	if !strings.HasPrefix(cfg.Log.File, filepath.Join(work, "state")) {
		t.Fatalf("log file should follow TASKCHAT_HOME: %q", cfg.Log.File)
	}
	if cfg.UI.Locale != "zh-CN" {
		t.Fatalf("locale=%q", cfg.UI.Locale)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
		env  map[string]string
	}{
		{name: "bad scheme", cfg: `{"api":{"base_url":"ftp://x"}}`},
		{name: "bad backend", cfg: `{"storage":{"backend":"redis"}}`},
		{name: "bad mode", cfg: `{"ui":{"mode":"gui"}}`},
		{name: "bad timeout env", cfg: `{}`, env: map[string]string{"TASKCHAT_TIMEOUT_MS": "soon"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if err := os.WriteFile("taskchat.config.json", []byte(tc.cfg), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWriteAPIBaseURL(t *testing.T) {
	_, work := isolate(t)
	dir := filepath.Join(work, ".taskchat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"ui":{"mode":"tui"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteAPIBaseURL(work, "http://remote:9000/"); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://remote:9000" {
		t.Fatalf("base_url=%q", cfg.API.BaseURL)
	}
	if cfg.UI.Mode != ModeTUI {
		t.Fatalf("existing keys must survive, mode=%q", cfg.UI.Mode)
	}
	if err := WriteAPIBaseURL(work, "not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestInitProjectConfigScaffold(t *testing.T) {
	_, work := isolate(t)
	if err := InitProjectConfigScaffold(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(work, ".taskchat", "config.json")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(""); err != nil {
		t.Fatal(err)
	}
}
