package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Booking.StoreTimeout)
	assert.Equal(t, 400, cfg.Booking.QRSize)
	assert.Equal(t, time.Hour, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.Redis.HoldTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Kafka.Topics.All(), 5)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BOOKING_STORE_TIMEOUT", "2s")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("PUBLIC_BASE_URL", "https://tickets.example.com/")
	t.Setenv("DB_HOST", "db")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Booking.StoreTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "https://tickets.example.com", cfg.App.PublicBaseURL)
	assert.Equal(t, "postgres://ticketnepal:ticketnepal@db:5432/ticketnepal?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("QR_SIZE", "big")
	t.Setenv("SWEEP_INTERVAL", "often")
	t.Setenv("EVENT_TIMEZONE", "Mars/Olympus")

	cfg := Load()

	assert.Equal(t, 400, cfg.Booking.QRSize)
	assert.Equal(t, time.Hour, cfg.Scheduler.SweepInterval)
	assert.Equal(t, time.UTC, cfg.Booking.Location())
}
