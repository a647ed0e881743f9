package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes
const (
	OutcomeBooked   = "booked"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Check-in outcomes
const (
	CheckInAdmitted  = "admitted"
	CheckInDuplicate = "duplicate"
	CheckInForbidden = "forbidden"
)

var (
	bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketnepal_bookings_total",
			Help: "Booking requests by outcome",
		},
		[]string{"outcome"},
	)

	seatsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketnepal_seats_booked_total",
			Help: "Seats reserved by successful bookings",
		},
	)

	bookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketnepal_booking_duration_seconds",
			Help:    "Time spent in the booking transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketnepal_checkins_total",
			Help: "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	staffDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketnepal_staff_decisions_total",
			Help: "Staff application decisions",
		},
		[]string{"decision"},
	)

	eventsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketnepal_events_swept_total",
			Help: "Events soft-deleted by the expiry sweep",
		},
	)
)

func RecordBooking(outcome string, seats int, took time.Duration) {
	bookings.WithLabelValues(outcome).Inc()
	if outcome == OutcomeBooked {
		seatsBooked.Add(float64(seats))
	}
	bookingDuration.Observe(took.Seconds())
}

func RecordCheckIn(outcome string) {
	checkIns.WithLabelValues(outcome).Inc()
}

func RecordStaffDecision(decision string) {
	staffDecisions.WithLabelValues(decision).Inc()
}

func RecordSweep(n int) {
	eventsSwept.Add(float64(n))
}
