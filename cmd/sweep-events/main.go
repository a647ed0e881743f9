// Command sweep-events soft-deletes events that ended more than a day ago.
// It runs once and exits, for use from cron when the in-process scheduler is off.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ticketnepal/internal/clock"
	"ticketnepal/internal/config"
	"ticketnepal/internal/database"
	eventsdb "ticketnepal/internal/events/db"
	events "ticketnepal/internal/events/service"
	"ticketnepal/internal/kafka"
	"ticketnepal/internal/logger"
	ticketdb "ticketnepal/internal/tickets/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, "sweep-events", logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	var publisher kafka.Publisher = kafka.LogPublisher{Logger: log}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publisher = producer
	}

	svc := events.NewEventService(eventsdb.NewDB(bunDB), ticketdb.NewDB(bunDB),
		kafka.NewEmitter(publisher, cfg.Kafka.Topics), clock.NewSystem(), log, cfg.Booking.Location())
	svc.StoreTimeout = cfg.Booking.StoreTimeout

	n, err := svc.SweepExpiredEvents(ctx)
	if err != nil {
		log.Error("SWEEP", fmt.Sprintf("Sweep failed: %v", err))
		os.Exit(1)
	}
	log.Info("SWEEP", fmt.Sprintf("Done, %d event(s) swept", n))
}
