package config

import (
	"log"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	conf     *viper.Viper
	loadOnce sync.Once
)

func load() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	conf = viper.New()
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("APP_ENV", "development")
	conf.SetDefault("APP_PORT", "8080")
	conf.SetDefault("APP_NAME", "Tutor Marketplace")
	conf.SetDefault("TIME_ZONE", "Africa/Nairobi")
	conf.SetDefault("PLATFORM_COMMISSION_RATE", "0.20")
	conf.SetDefault("MIN_PAYOUT_AMOUNT", "10")
	conf.SetDefault("MODIFICATION_EXPIRY_HOURS", 48)
	conf.SetDefault("SLOT_STEP_MINUTES", 30)
	conf.SetDefault("DEFAULT_CURRENCY", "USD")
	conf.SetDefault("SETTINGS_CACHE_TTL", 10*time.Minute)
	conf.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	conf.SetDefault("MONEY_RATE_LIMIT_PER_MINUTE", 10)
	conf.AutomaticEnv()
}

func viperInstance() *viper.Viper {
	loadOnce.Do(load)
	return conf
}

// Config returns the raw string value for key.
func Config(key string) string {
	return viperInstance().GetString(key)
}

func Int(key string) int {
	return viperInstance().GetInt(key)
}

func Bool(key string) bool {
	return viperInstance().GetBool(key)
}

func Duration(key string) time.Duration {
	return viperInstance().GetDuration(key)
}

// Set overrides a value at runtime. Used by tests and the admin settings seed.
func Set(key string, value interface{}) {
	viperInstance().Set(key, value)
}
