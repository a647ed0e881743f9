package redis

import (
	"context"
	"fmt"
	"time"

	"ticketnepal/internal/logger"

	"github.com/go-redis/redis/v8"
)

const DefaultHoldTTL = 30 * time.Second

// releaseScript deletes a hold only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SeatHolds keeps short-lived holds on seats while a booking is in flight.
// A hold marks a seat as contested; the ticket table's unique constraint
// still decides who gets it.
type SeatHolds struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewSeatHolds(client *redis.Client, ttl time.Duration, log *logger.Logger) *SeatHolds {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &SeatHolds{Client: client, TTL: ttl, Logger: log}
}

func holdKey(eventID, seat string) string {
	return fmt.Sprintf("seat_hold:%s:%s", eventID, seat)
}

// HoldSeat takes the hold on one seat. It reports false if someone else holds it.
func (r *SeatHolds) HoldSeat(ctx context.Context, eventID, seat, holder string) (bool, error) {
	return r.Client.SetNX(ctx, holdKey(eventID, seat), holder, r.TTL).Result()
}

// ReleaseSeat drops the hold if holder still owns it.
func (r *SeatHolds) ReleaseSeat(ctx context.Context, eventID, seat, holder string) error {
	return releaseScript.Run(ctx, r.Client, []string{holdKey(eventID, seat)}, holder).Err()
}

// HoldSeats holds every seat or none. On a clash it returns the contested
// seat and releases what it already took.
func (r *SeatHolds) HoldSeats(ctx context.Context, eventID string, seats []string, holder string) (string, error) {
	held := make([]string, 0, len(seats))
	for _, seat := range seats {
		ok, err := r.HoldSeat(ctx, eventID, seat, holder)
		if err != nil || !ok {
			if relErr := r.ReleaseSeats(ctx, eventID, held, holder); relErr != nil {
				r.Logger.Warn("REDIS", fmt.Sprintf("Failed to roll back holds for %s: %v", holder, relErr))
			}
			if err != nil {
				return "", fmt.Errorf("hold seat %s: %w", seat, err)
			}
			return seat, nil
		}
		held = append(held, seat)
	}
	return "", nil
}

func (r *SeatHolds) ReleaseSeats(ctx context.Context, eventID string, seats []string, holder string) error {
	var firstErr error
	for _, seat := range seats {
		if err := r.ReleaseSeat(ctx, eventID, seat, holder); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HeldSeats lists which of seats are currently held by anyone.
func (r *SeatHolds) HeldSeats(ctx context.Context, eventID string, seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	keys := make([]string, len(seats))
	for i, seat := range seats {
		keys[i] = holdKey(eventID, seat)
	}
	vals, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var held []string
	for i, v := range vals {
		if v != nil {
			held = append(held, seats[i])
		}
	}
	return held, nil
}
