package scheduling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firstdate_matching_attempts_total",
		Help: "Matching engine runs by outcome",
	}, []string{"outcome"})

	bookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "firstdate_bookings_confirmed_total",
		Help: "Bookings that reached dual confirmation",
	})

	bookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "firstdate_bookings_cancelled_total",
		Help: "Bookings cancelled by a participant",
	})
)
