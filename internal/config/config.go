package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Bank     BankConfig
	Booking  BookingConfig
	Lottery  LotteryConfig
	Notify   NotifyConfig
	Profile  ProfileConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	MigrationsDir string
	AutoMigrate   bool
	SeedData      bool
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers     []string
	Enabled     bool
	TicketTopic string
}

type AuthConfig struct {
	OIDCIssuer   string
	JWTSecret    string
	AdminUserIDs []string
}

type BankConfig struct {
	WebhookSecret string
	APIURL        string
	APIKey        string
	PageSize      int
	SyncInterval  time.Duration
}

type BookingConfig struct {
	ThrottleMax    int
	ThrottleWindow time.Duration
	LoginCooldown  time.Duration
}

type LotteryConfig struct {
	PrizesFile   string
	AllowedUsers []string
	PoolLimit    int
}

type NotifyConfig struct {
	SheetWebhookURL string
	QRSize          int
	QRSecret        string
}

// ProfileConfig points at the user-profile service used to resolve display
// names in admin booking lists. Empty ServiceURL disables the lookup.
type ProfileConfig struct {
	ServiceURL   string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8084"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:           getEnv("POSTGRES_DSN", ""),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", true),
			SeedData:      getEnvBool("SEED_DATA", false),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled:     getEnvBool("KAFKA_ENABLED", false),
			TicketTopic: getEnv("KAFKA_TOPIC_TICKET_ISSUED", "busbooking.ticket.issued"),
		},
		Auth: AuthConfig{
			OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			AdminUserIDs: getEnvList("ADMIN_USER_IDS", nil),
		},
		Bank: BankConfig{
			WebhookSecret: getEnv("BANK_WEBHOOK_SECRET", ""),
			APIURL:        getEnv("BANK_API_URL", "https://oauth.casso.vn"),
			APIKey:        getEnv("BANK_API_KEY", ""),
			PageSize:      getEnvInt("BANK_SYNC_PAGE_SIZE", 100),
			SyncInterval:  getEnvDuration("BANK_SYNC_INTERVAL", 0),
		},
		Booking: BookingConfig{
			ThrottleMax:    getEnvInt("BOOKING_THROTTLE_MAX", 3),
			ThrottleWindow: getEnvDuration("BOOKING_THROTTLE_WINDOW", 10*time.Minute),
			LoginCooldown:  getEnvDuration("BOOKING_LOGIN_COOLDOWN", 30*time.Second),
		},
		Lottery: LotteryConfig{
			PrizesFile:   getEnv("LOTTERY_PRIZES_FILE", ""),
			AllowedUsers: getEnvList("LOTTERY_ALLOWED_USERS", nil),
			PoolLimit:    getEnvInt("LOTTERY_POOL_LIMIT", 200),
		},
		Notify: NotifyConfig{
			SheetWebhookURL: getEnv("SHEET_WEBHOOK_URL", ""),
			QRSize:          getEnvInt("TICKET_QR_SIZE", 256),
			QRSecret:        getEnv("TICKET_QR_SECRET", ""),
		},
		Profile: ProfileConfig{
			ServiceURL:   getEnv("PROFILE_SERVICE_URL", ""),
			TokenURL:     getEnv("PROFILE_TOKEN_URL", ""),
			ClientID:     getEnv("PROFILE_CLIENT_ID", "ms-booking"),
			ClientSecret: getEnv("PROFILE_CLIENT_SECRET", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
