package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "bookings_created_total",
		Help:      "Successful ride reservations.",
	})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "bookings_cancelled_total",
		Help:      "Passenger-initiated booking cancellations.",
	})
	RidesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "rides_cancelled_total",
		Help:      "Driver-initiated ride cancellations.",
	})
	PickupsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "pickups_verified_total",
		Help:      "Bookings verified at pickup by PIN.",
	})
	PinMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "pin_mismatches_total",
		Help:      "Pickup PIN verification failures.",
	})
	TrackingSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "tracking_sessions_started_total",
		Help:      "Live tracking sessions opened.",
	})
	CoordinatesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ribit",
		Name:      "tracking_coordinates_total",
		Help:      "Position samples appended to tracking sessions.",
	})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ribit",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
