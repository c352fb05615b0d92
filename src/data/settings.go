package data

import (
	"sync"

	"gorm.io/gorm"
)

// Setting is a name/value row of the settings table.
type Setting struct {
	Name  string `gorm:"primaryKey;size:128"`
	Value string `gorm:"type:text"`
}

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings loads all settings from the database into cache
func LoadSettings(db *gorm.DB) error {
	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	settingsCache = make(map[string]string, len(settings))
	for _, s := range settings {
		settingsCache[s.Name] = s.Value
	}

	return nil
}

// GetSetting retrieves a setting value from cache (call LoadSettings first)
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}

// SetSettingForTest replaces the cached settings.
func SetSettingForTest(values map[string]string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsCache = values
}
