package config

import (
	"time"

	"gorm.io/gorm"
)

// WebConfig holds the HTTP API configuration
type WebConfig struct {
	Base
	Port           string
	JWTSecret      string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	VerifyLimit    int
	TrustedProxies []string
	Enabled        bool
}

// LoadWebConfig loads HTTP API configuration
func LoadWebConfig(db *gorm.DB) WebConfig {
	base := LoadBase(db)
	return WebConfig{
		Base:           base,
		Port:           GetSetting("web_port", "PORT", "3000"),
		JWTSecret:      GetSetting("jwt_secret", "JWT_SECRET", ""),
		AllowedOrigins: getListSetting("cors_origins", "CORS_ORIGINS", []string{"*"}),
		RateLimit:      getIntSetting("defence_rate_limit", "DEFENCE_RATE_LIMIT", 3),
		RateWindow:     getDurationSetting("defence_rate_window", "DEFENCE_RATE_WINDOW", time.Minute),
		VerifyLimit:    getIntSetting("verify_rate_limit", "VERIFY_RATE_LIMIT", 5),
		TrustedProxies: getListSetting("trusted_proxies", "TRUSTED_PROXIES", nil),
		Enabled:        getBoolSetting("enable_web", "ENABLE_WEB", true),
	}
}
