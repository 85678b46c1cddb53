package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_updates_received_total",
		Help: "The total number of Telegram updates converted into messages",
	}, []string{"chat_kind"})

	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_messages_handled_total",
		Help: "The total number of group messages handled by the repeater by outcome",
	}, []string{"outcome"})

	FilterDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_filter_drops_total",
		Help: "Total number of messages dropped by a scope filter",
	}, []string{"reason"})

	Promotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_promotions_total",
		Help: "Total number of promotion attempts by result",
	}, []string{"result"})

	ResendDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_resend_decisions_total",
		Help: "Total number of resend decisions by outcome",
	}, []string{"outcome"})

	ResendsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_resends_total",
		Help: "Total number of resend attempts by status",
	}, []string{"status"})

	ResendDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repeater_resend_decision_duration_seconds",
		Help:    "Time spent deciding a resend, including the simulated reaction delay",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 7.5, 10, 15, 30},
	})

	FrozenKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repeater_frozen_keys",
		Help: "Number of fingerprint/scope keys currently in cooldown",
	})

	WindowEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "repeater_window_entries",
		Help: "Number of entries held in the frequency window per scope",
	}, []string{"scope"})

	PromotedFingerprints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repeater_promoted_fingerprints",
		Help: "Number of promoted fingerprints across all scopes",
	})

	InFlightResends = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repeater_inflight_resends",
		Help: "Number of resend decisions currently waiting or sending",
	})

	ImageDownloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_image_downloads_total",
		Help: "Total number of image downloads by result",
	}, []string{"result"})

	ImageDownloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repeater_image_download_bytes",
		Help:    "Size of downloaded images in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	})

	RecorderWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_recorder_writes_total",
		Help: "Total number of raw message writes by status",
	}, []string{"status"})

	ListenerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repeater_listener_panics_total",
		Help: "Total number of recovered panics by listener",
	}, []string{"listener"})
)
