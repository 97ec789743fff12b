// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authority

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resolutionsTotal counts resolutions by outcome: staff, member (permissions
	// but no tier) or none.
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_permission_resolutions_total",
		Help: "Total number of permission resolutions by outcome",
	}, []string{"outcome"})

	// roleRefreshTotal counts live role refresh attempts by result.
	roleRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_role_refresh_total",
		Help: "Total number of live external role refreshes by result",
	}, []string{"result"})

	// usersUpdatedTotal counts users whose derived authority changed on sync.
	usersUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_authority_users_updated_total",
		Help: "Total number of users whose derived authority changed during sync",
	})
)

func recordResolution(r Resolution) {
	switch {
	case r.IsStaff:
		resolutionsTotal.WithLabelValues("staff").Inc()
	case len(r.Permissions) > 0:
		resolutionsTotal.WithLabelValues("member").Inc()
	default:
		resolutionsTotal.WithLabelValues("none").Inc()
	}
}
