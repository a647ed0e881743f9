package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Booking   BookingConfig
	Scheduler SchedulerConfig
	App       AppConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
	HoldTTL  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	TicketsBooked     string
	TicketsCheckedIn  string
	StaffDecided      string
	EventsSwept       string
	EmailNotification string
}

// All returns every configured topic name, for topic bootstrap.
func (t TopicConfig) All() []string {
	return []string{t.TicketsBooked, t.TicketsCheckedIn, t.StaffDecided, t.EventsSwept, t.EmailNotification}
}

type AuthConfig struct {
	JWTSecret    string
	OIDCIssuer   string
	OIDCClientID string
}

type BookingConfig struct {
	StoreTimeout  time.Duration
	QRSize        int
	EventTimezone string
}

type SchedulerConfig struct {
	SweepEnabled  bool
	SweepInterval time.Duration
}

type AppConfig struct {
	Name          string
	PublicBaseURL string
	MigrationsDir string
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "ticketnepal"),
			Password:     getEnv("DB_PASSWORD", "ticketnepal"),
			Database:     getEnv("DB_NAME", "ticketnepal"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			HoldTTL:  getEnvDuration("SEAT_HOLD_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				TicketsBooked:     getEnv("KAFKA_TOPIC_TICKETS_BOOKED", "ticketnepal.tickets.booked"),
				TicketsCheckedIn:  getEnv("KAFKA_TOPIC_TICKETS_CHECKEDIN", "ticketnepal.tickets.checkedin"),
				StaffDecided:      getEnv("KAFKA_TOPIC_STAFF_DECIDED", "ticketnepal.staff.decided"),
				EventsSwept:       getEnv("KAFKA_TOPIC_EVENTS_SWEPT", "ticketnepal.events.swept"),
				EmailNotification: getEnv("KAFKA_TOPIC_EMAIL", "ticketnepal.notifications.email"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
			OIDCClientID: getEnv("OIDC_CLIENT_ID", "ticketnepal"),
		},
		Booking: BookingConfig{
			StoreTimeout:  getEnvDuration("BOOKING_STORE_TIMEOUT", 5*time.Second),
			QRSize:        getEnvInt("QR_SIZE", 400),
			EventTimezone: getEnv("EVENT_TIMEZONE", "UTC"),
		},
		Scheduler: SchedulerConfig{
			SweepEnabled:  getEnvBool("SWEEP_ENABLED", true),
			SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
		},
		App: AppConfig{
			Name:          getEnv("APP_NAME", "ticketnepal"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}
}

// Location resolves EVENT_TIMEZONE, falling back to UTC on unknown names.
func (b BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.EventTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
