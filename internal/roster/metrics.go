// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation kinds used as metric labels.
const (
	kindIdentifier = "identifier"
	kindCallsign   = "callsign"
)

var (
	synthesisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_roster_synthesis_duration_seconds",
		Help:    "Time spent synthesizing a department roster",
		Buckets: prometheus.DefBuckets,
	}, []string{"department"})

	rosterRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "portal_roster_rows",
		Help: "Rows in the most recently synthesized roster per department",
	}, []string{"department"})

	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_roster_allocations_total",
		Help: "Identifiers and callsigns allocated and persisted",
	}, []string{"department", "kind"})

	exhaustionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_roster_allocation_exhausted_total",
		Help: "Allocations that found their value space full",
	}, []string{"department", "kind"})

	leadershipChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_leadership_checks_total",
		Help: "Department leadership checks by deciding signal",
	}, []string{"signal"})
)
