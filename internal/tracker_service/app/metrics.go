package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "inbound_messages_processed_total",
			Help:      "Total number of inbound webhook messages reconciled.",
		},
		[]string{"result"}, // "created", "updated", "error"
	)

	reconcileDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracker",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of the inbound reconcile transaction.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	deliveryConfirmCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "delivery_confirmations_total",
			Help:      "Total number of delivery confirmation calls.",
		},
		[]string{"result"}, // "success", "not_found", "error"
	)

	clientsDeletedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "clients_deleted_total",
			Help:      "Total number of clients removed via the admin endpoint.",
		},
	)
)
