package config

import (
	"path/filepath"

	"gorm.io/gorm"
)

// DefenceConfig holds the defence bot configuration
type DefenceConfig struct {
	Base
	StateDir       string
	MapBaseURL     string
	MapSQLURL      string
	RestoreWorkers int
	Enabled        bool
}

// LoadDefenceConfig loads defence bot configuration
func LoadDefenceConfig(db *gorm.DB) DefenceConfig {
	base := LoadBase(db)
	mapBase := GetSetting("map_base_url", "MAP_BASE_URL", "")
	mapSQL := GetSetting("map_sql_url", "MAP_SQL_URL", "")
	if mapSQL == "" && mapBase != "" {
		mapSQL = mapBase + "/map.sql"
	}

	return DefenceConfig{
		Base:           base,
		StateDir:       GetSetting("defence_state_dir", "DEFENCE_STATE_DIR", "./data"),
		MapBaseURL:     mapBase,
		MapSQLURL:      mapSQL,
		RestoreWorkers: getIntSetting("defence_restore_workers", "DEFENCE_RESTORE_WORKERS", 8),
		Enabled:        getBoolSetting("enable_defence", "ENABLE_DEFENCE", true),
	}
}

// StatePath joins name onto the state directory.
func (c DefenceConfig) StatePath(name string) string {
	return filepath.Join(c.StateDir, name)
}
