package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stake-plus/defcalls/src/data"
	"gorm.io/gorm"
)

// Base contains common configuration fields
type Base struct {
	Token    string
	GuildID  string
	MySQLDSN string
	RedisURL string
	Env      string
}

// LoadBase loads common configuration (discord token, guild ID, MySQL DSN)
func LoadBase(db *gorm.DB) Base {
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			// Log but continue - env fallbacks will work
		}
	}

	dsn, _ := data.GetMySQLDSN()

	return Base{
		Token:    GetSetting("discord_token", "DISCORD_TOKEN", ""),
		GuildID:  GetSetting("guild_id", "GUILD_ID", ""),
		MySQLDSN: dsn,
		RedisURL: GetSetting("redis_url", "REDIS_URL", "redis://localhost:6379/0"),
		Env:      GetSetting("env", "DEFCALLS_ENV", "development"),
	}
}

// GetSetting retrieves a setting from the settings table, then the
// environment, then the config file, then defaultValue.
func GetSetting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" && envKey != "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = fileSetting(name)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func getBoolSetting(name, envKey string, defaultValue bool) bool {
	val := strings.ToLower(strings.TrimSpace(GetSetting(name, envKey, "")))
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getIntSetting(name, envKey string, defaultValue int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(GetSetting(name, envKey, ""))); err == nil {
		return n
	}
	return defaultValue
}

func getDurationSetting(name, envKey string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(GetSetting(name, envKey, ""))); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getListSetting(name, envKey string, defaultValue []string) []string {
	raw := GetSetting(name, envKey, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
