package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const legacyImportMigration = "legacy_credential_file"

// ImportLegacyFile 将旧版 JSON 凭证文件导入 SQLite，只执行一次
// ImportLegacyFile imports a legacy JSON credential file into SQLite exactly once.
//
// The file is a flat object keyed by slot name. The first non-empty value in
// keys order wins and is written to every slot, so the imported slots are
// mirrored from the start.
func ImportLegacyFile(jsonPath string, store *SQLiteStore, keys ...string) (bool, error) {
	jsonPath = strings.TrimSpace(jsonPath)
	if jsonPath == "" || store == nil || len(keys) == 0 {
		return false, nil
	}

	// 检查是否已迁移 / Check if already migrated
	var applied string
	err := store.db.QueryRow("SELECT applied_at FROM migrations WHERE name=?", legacyImportMigration).Scan(&applied)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check migration: %w", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read legacy file: %w", err)
	}
	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return false, fmt.Errorf("parse legacy file %q: %w", jsonPath, err)
	}

	value := ""
	for _, k := range keys {
		if v := strings.TrimSpace(legacy[k]); v != "" {
			value = v
			break
		}
	}

	tx, err := store.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowUTC()
	if value != "" {
		for _, k := range keys {
			if _, err := tx.Exec(`
				INSERT INTO credential_slots (slot, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(slot) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
				k, value, now); err != nil {
				return false, fmt.Errorf("import slot %s: %w", k, err)
			}
		}
	}
	if _, err := tx.Exec("INSERT INTO migrations (name, applied_at) VALUES (?, ?)", legacyImportMigration, now); err != nil {
		return false, fmt.Errorf("record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return value != "", nil
}
