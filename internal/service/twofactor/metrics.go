package twofactor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// setupInitiatedTotal tracks setup flows started
	setupInitiatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobdeck",
			Subsystem: "twofactor",
			Name:      "setup_initiated_total",
			Help:      "Total two-factor setup flows initiated",
		},
	)

	// enableTotal tracks enable attempts by outcome
	enableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobdeck",
			Subsystem: "twofactor",
			Name:      "enable_total",
			Help:      "Total two-factor enable attempts",
		},
		[]string{"status"}, // success, invalid_code, expired
	)

	// verifyTotal tracks login verifications by method and outcome
	verifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobdeck",
			Subsystem: "twofactor",
			Name:      "verify_total",
			Help:      "Total two-factor login verifications",
		},
		[]string{"method", "status"}, // method: totp, backup, none
	)

	// disableTotal tracks completed disables
	disableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobdeck",
			Subsystem: "twofactor",
			Name:      "disable_total",
			Help:      "Total two-factor disables",
		},
	)

	// regenerateTotal tracks backup-code regenerations
	regenerateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobdeck",
			Subsystem: "twofactor",
			Name:      "backup_codes_regenerated_total",
			Help:      "Total backup-code set regenerations",
		},
	)

	// replayRejectedTotal tracks TOTP codes rejected as replays
	replayRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobdeck",
			Subsystem: "twofactor",
			Name:      "replay_rejected_total",
			Help:      "Total TOTP codes rejected because they were already used",
		},
	)
)
