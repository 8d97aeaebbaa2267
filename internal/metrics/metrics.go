// Package metrics holds the Prometheus collectors for the admission flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Admissions counts admission attempts by outcome: granted, not_invited,
	// inactive or store_unavailable.
	Admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_admissions_total",
		Help: "Admission attempts by outcome.",
	}, []string{"outcome"})

	// ReconciliationFaults counts best-effort bookkeeping tasks that failed
	// or were dropped from the queue.
	ReconciliationFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_reconciliation_faults_total",
		Help: "Best-effort reconciliation tasks that failed or were dropped.",
	}, []string{"op"})

	// LinkConflicts counts admissions where the authenticated identity did
	// not match the identity already linked to the administrator record.
	LinkConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_identity_link_conflicts_total",
		Help: "Admissions whose identity differs from the stored identity link.",
	})
)
