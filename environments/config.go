package environments

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Scheduler SchedulerConfig
	Delivery  DeliveryConfig
	Alert     AlertConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ProviderConfig points at the WhatsApp HTTP gateway.
type ProviderConfig struct {
	BaseURL  string
	APIKey   string
	Instance string
	Timeout  time.Duration
}

type SchedulerConfig struct {
	TickInterval time.Duration
	MinSpacing   time.Duration
	Tolerance    time.Duration
	Timezone     string
	Workers      int
	AutoStart    bool
}

type DeliveryConfig struct {
	CountryCode          string
	SendDelay            time.Duration
	ReconnectSettleDelay time.Duration
	CooldownWindow       time.Duration
	AddressCacheTTL      time.Duration
}

type AlertConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

type AuthConfig struct {
	APIKey string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Log: LogConfig{
			Level: GetEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "campaigns"),
			Password: GetEnv("DB_PASSWORD", "campaigns123"),
			DBName:   GetEnv("DB_NAME", "campaign_scheduler"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Provider: ProviderConfig{
			BaseURL:  GetEnv("WHATSAPP_API_URL", "http://localhost:8081"),
			APIKey:   GetEnv("WHATSAPP_API_KEY", ""),
			Instance: GetEnv("WHATSAPP_INSTANCE", "campaigns"),
			Timeout:  GetEnvAsDuration("WHATSAPP_TIMEOUT", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			TickInterval: GetEnvAsDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
			MinSpacing:   GetEnvAsDuration("SCHEDULER_MIN_SPACING", 45*time.Second),
			Tolerance:    time.Duration(GetEnvAsInt("SCHEDULER_TOLERANCE_MINUTES", 3)) * time.Minute,
			Timezone:     GetEnv("SCHEDULE_TIMEZONE", "America/Sao_Paulo"),
			Workers:      GetEnvAsInt("SCHEDULER_WORKERS", 2),
			AutoStart:    GetEnvAsBool("AUTO_START_SCHEDULER", true),
		},
		Delivery: DeliveryConfig{
			CountryCode:          GetEnv("DEFAULT_COUNTRY_CODE", "55"),
			SendDelay:            GetEnvAsDuration("SEND_DELAY", 3*time.Second),
			ReconnectSettleDelay: GetEnvAsDuration("RECONNECT_SETTLE_DELAY", 5*time.Second),
			CooldownWindow:       GetEnvAsDuration("COOLDOWN_WINDOW", 2*time.Hour),
			AddressCacheTTL:      GetEnvAsDuration("ADDRESS_CACHE_TTL", 6*time.Hour),
		},
		Alert: AlertConfig{
			WebhookURL: GetEnv("ALERT_WEBHOOK_URL", ""),
			Timeout:    GetEnvAsDuration("ALERT_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			APIKey: GetEnv("API_KEY", ""),
		},
	}
}

// Location resolves the fixed civil time zone all schedules are evaluated in.
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
