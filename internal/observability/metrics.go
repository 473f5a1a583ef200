package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "curator",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	DeviceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "curator",
		Name:      "device_requests_total",
		Help:      "Outbound camera device requests by operation and outcome",
	}, []string{"op", "outcome"})

	CaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "curator",
		Name:      "capture_duration_seconds",
		Help:      "Duration of device capture calls",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	CategoriesSeeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curator",
		Name:      "categories_seeded_total",
		Help:      "Total number of categories created by taxonomy seeding",
	})
)
