package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Public base URL of this gateway, used to build payment notification URLs.
	BaseURL string `mapstructure:"BASE_URL"`

	// Tenant static configuration file.
	TenantsFile   string `mapstructure:"TENANTS_FILE"`
	DefaultTenant string `mapstructure:"DEFAULT_TENANT"`

	// Directory for append-only lead capture files.
	LeadsDir string `mapstructure:"LEADS_DIR"`

	// Reservation ledger persistence. Empty DATABASE_URL keeps the ledger
	// in-process (useful for local runs and tests).
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis (optional, message dedupe and charge idempotency).
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`

	// Messaging bridge.
	WahaAPIKey string `mapstructure:"WAHA_API_KEY"`

	// Payment provider.
	MPBaseURL          string `mapstructure:"MP_BASE_URL"`
	MPWebhookSecret    string `mapstructure:"MP_WEBHOOK_SECRET"`
	MPRequireSignature bool   `mapstructure:"MP_REQUIRE_SIGNATURE"`

	// Scheduler.
	EnableScheduler      bool `mapstructure:"ENABLE_SCHEDULER"`
	SchedulerIntervalSec int  `mapstructure:"SCHEDULER_INTERVAL_SEC"`
	PixReminderWindowMin int  `mapstructure:"PIX_REMINDER_WINDOW_MIN"`
	ReservationTTLMin    int  `mapstructure:"RESERVATION_TTL_MIN"`
}

var AppConfig Config

// LoadConfig initializes Viper to load config values from env, file, or defaults.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8000")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("BASE_URL", "http://localhost:8000")
	viper.SetDefault("TENANTS_FILE", "config/tenants.yaml")
	viper.SetDefault("DEFAULT_TENANT", "empresa1")
	viper.SetDefault("LEADS_DIR", "data")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DATABASE_NAME", "agendazap")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("MP_BASE_URL", "https://api.mercadopago.com")
	viper.SetDefault("MP_REQUIRE_SIGNATURE", false)
	viper.SetDefault("ENABLE_SCHEDULER", true)
	viper.SetDefault("SCHEDULER_INTERVAL_SEC", 60)
	viper.SetDefault("PIX_REMINDER_WINDOW_MIN", 5)
	viper.SetDefault("RESERVATION_TTL_MIN", 20)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
