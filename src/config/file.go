package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileEnvKey names the environment variable holding the YAML config path.
const FileEnvKey = "DEFCALLS_CONFIG"

var (
	fileOnce     sync.Once
	fileMu       sync.RWMutex
	fileSettings map[string]string
)

// LoadFile reads a flat YAML map of setting names to values. Later
// calls replace earlier ones.
func LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	fileMu.Lock()
	fileSettings = values
	fileMu.Unlock()
	return nil
}

func fileSetting(name string) string {
	fileOnce.Do(func() {
		if path := os.Getenv(FileEnvKey); path != "" {
			_ = LoadFile(path)
		}
	})
	fileMu.RLock()
	defer fileMu.RUnlock()
	return fileSettings[name]
}

func resetFileSettings() {
	fileMu.Lock()
	fileSettings = nil
	fileMu.Unlock()
}
