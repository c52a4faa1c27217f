package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	BaseURL   string `json:"base_url"`
	TimeoutMS int    `json:"timeout_ms"`
}

type StorageConfig struct {
	BaseDir string `json:"base_dir"`
	// Backend 凭证存储后端：sqlite 或 memory
	// Backend selects the credential backend: sqlite or memory
	Backend string `json:"backend"`
	// LegacyFile 旧版 JSON 凭证文件，首次启动时导入
	// LegacyFile is an older JSON credential file imported on first start
	LegacyFile string `json:"legacy_file"`
}

type UIConfig struct {
	// Mode 界面模式：auto、tui 或 repl
	// Mode is the interface: auto, tui or repl
	Mode     string `json:"mode"`
	Locale   string `json:"locale"`
	Markdown bool   `json:"markdown"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

type Config struct {
	API     APIConfig     `json:"api"`
	Storage StorageConfig `json:"storage"`
	UI      UIConfig      `json:"ui"`
	Log     LogConfig     `json:"log"`
}

type fileUIConfig struct {
	Mode     *string `json:"mode"`
	Locale   *string `json:"locale"`
	Markdown *bool   `json:"markdown"`
}

type fileConfig struct {
	API     *APIConfig     `json:"api"`
	Storage *StorageConfig `json:"storage"`
	UI      *fileUIConfig  `json:"ui"`
	Log     *LogConfig     `json:"log"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   DefaultAPIBaseURL,
			TimeoutMS: DefaultAPITimeoutMS,
		},
		Storage: StorageConfig{
			BaseDir: "~/.taskchat",
			Backend: BackendSQLite,
		},
		UI: UIConfig{
			Mode:     ModeAuto,
			Markdown: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	for _, projectPath := range findProjectConfigPaths() {
		if err := mergeFromFile(&cfg, projectPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("TASKCHAT_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if err := mergeExplicitFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".taskchat", "config.json")}
}

func findProjectConfigPaths() []string {
	candidates := []string{
		"taskchat.config.json",
		".taskchat/config.json",
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// mergeExplicitFile differs from mergeFromFile only in that a missing file
// is an error: the user named it.
func mergeExplicitFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}
	if _, err := os.Stat(resolved); err != nil {
		return fmt.Errorf("config %q: %w", resolved, err)
	}
	return mergeFromFile(cfg, resolved)
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.API != nil {
		cfg.API = mergeAPI(cfg.API, *fc.API)
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.UI != nil {
		if fc.UI.Mode != nil {
			cfg.UI.Mode = *fc.UI.Mode
		}
		if fc.UI.Locale != nil {
			cfg.UI.Locale = *fc.UI.Locale
		}
		if fc.UI.Markdown != nil {
			cfg.UI.Markdown = *fc.UI.Markdown
		}
	}
	if fc.Log != nil {
		cfg.Log = mergeLog(cfg.Log, *fc.Log)
	}
}

func mergeAPI(base APIConfig, override APIConfig) APIConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.Backend) != "" {
		base.Backend = override.Backend
	}
	if strings.TrimSpace(override.LegacyFile) != "" {
		base.LegacyFile = override.LegacyFile
	}
	return base
}

func mergeLog(base LogConfig, override LogConfig) LogConfig {
	if strings.TrimSpace(override.Level) != "" {
		base.Level = override.Level
	}
	if strings.TrimSpace(override.Format) != "" {
		base.Format = override.Format
	}
	if strings.TrimSpace(override.File) != "" {
		base.File = override.File
	}
	return base
}

func normalize(cfg *Config) error {
	baseURL, err := normalizeBaseURL(cfg.API.BaseURL)
	if err != nil {
		return err
	}
	cfg.API.BaseURL = baseURL
	if cfg.API.TimeoutMS <= 0 {
		cfg.API.TimeoutMS = DefaultAPITimeoutMS
	}

	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = Default().Storage.BaseDir
	}
	storageDir, err := ExpandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = storageDir
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)); backend {
	case "":
		cfg.Storage.Backend = BackendSQLite
	case BackendSQLite, BackendMemory:
		cfg.Storage.Backend = backend
	default:
		return fmt.Errorf("invalid storage.backend: %q", cfg.Storage.Backend)
	}
	if cfg.Storage.LegacyFile != "" {
		legacy, err := ExpandPath(cfg.Storage.LegacyFile)
		if err != nil {
			return err
		}
		cfg.Storage.LegacyFile = legacy
	}

	switch mode := strings.ToLower(strings.TrimSpace(cfg.UI.Mode)); mode {
	case "":
		cfg.UI.Mode = ModeAuto
	case ModeAuto, ModeTUI, ModeREPL:
		cfg.UI.Mode = mode
	default:
		return fmt.Errorf("invalid ui.mode: %q", cfg.UI.Mode)
	}
	cfg.UI.Locale = strings.TrimSpace(cfg.UI.Locale)

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format != "json" {
		cfg.Log.Format = "text"
	}
	if strings.TrimSpace(cfg.Log.File) == "" {
		cfg.Log.File = filepath.Join(cfg.Storage.BaseDir, "logs", "taskchat.log")
	} else {
		logFile, err := ExpandPath(cfg.Log.File)
		if err != nil {
			return err
		}
		cfg.Log.File = logFile
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("TASKCHAT_API_URL")); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKCHAT_TIMEOUT_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TASKCHAT_TIMEOUT_MS: %q", v)
		}
		cfg.API.TimeoutMS = n
	}
	if v := strings.TrimSpace(os.Getenv("TASKCHAT_HOME")); v != "" {
		// The derived log path follows the new home unless set explicitly.
		if cfg.Log.File == filepath.Join(cfg.Storage.BaseDir, "logs", "taskchat.log") {
			cfg.Log.File = ""
		}
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKCHAT_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKCHAT_LANG")); v != "" {
		cfg.UI.Locale = v
	}

	return cfg, normalize(&cfg)
}

// normalizeBaseURL 校验并规范化服务地址
// normalizeBaseURL validates the service root and strips the trailing slash
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAPIBaseURL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid api.base_url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid api.base_url %q: scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid api.base_url %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// RequestTimeout is the per-request deadline.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CredentialDBPath is where the SQLite credential store lives.
func (c StorageConfig) CredentialDBPath() string {
	return filepath.Join(c.BaseDir, "credentials.db")
}

// HistoryPath is the REPL line history file.
func (c StorageConfig) HistoryPath() string {
	return filepath.Join(c.BaseDir, "repl_history")
}

// ExpandPath resolves a leading ~ to the home directory and makes path
// absolute. An empty path stays empty.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
