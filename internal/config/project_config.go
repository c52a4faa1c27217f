package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InitProjectConfigScaffold 在当前工作目录下初始化项目级配置模板（./.taskchat/config.json）。
// InitProjectConfigScaffold initializes a project-level config scaffold (./.taskchat/config.json) in the current working directory.
func InitProjectConfigScaffold() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get current working directory: %w", err)
	}

	dir := filepath.Join(cwd, ".taskchat")
	path := filepath.Join(dir, "config.json")

	// 若项目已经有 ./.taskchat/config.json，则尊重用户现有配置。
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("project config path is a directory: %s", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat project config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir .taskchat: %w", err)
	}

	scaffold := map[string]any{
		"api": map[string]any{
			"base_url":   DefaultAPIBaseURL,
			"timeout_ms": DefaultAPITimeoutMS,
		},
		"ui": map[string]any{
			"mode":     ModeAuto,
			"markdown": true,
		},
	}
	data, err := json.MarshalIndent(scaffold, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}

	return nil
}

// WriteAPIBaseURL 将 api.base_url 写入项目配置（./.taskchat/config.json）；目录不存在则创建
// WriteAPIBaseURL writes api.base_url to project config (./.taskchat/config.json); creates dir if needed
func WriteAPIBaseURL(projectDir, baseURL string) error {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return err
	}
	if strings.TrimSpace(baseURL) == "" {
		return errors.New("base url is empty")
	}
	dir := filepath.Join(strings.TrimSpace(projectDir), ".taskchat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir .taskchat: %w", err)
	}
	path := filepath.Join(dir, "config.json")
	var out map[string]any
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(stripJSONComments(data), &out); err != nil {
			out = nil
		}
	}
	if out == nil {
		out = make(map[string]any)
	}
	apiMap, _ := out["api"].(map[string]any)
	if apiMap == nil {
		apiMap = make(map[string]any)
	}
	apiMap["base_url"] = normalized
	out["api"] = apiMap
	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
