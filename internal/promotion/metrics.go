package promotion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invitegate",
		Name:      "redemptions_total",
		Help:      "Invitation redemptions by result.",
	}, []string{"result"})

	invitationsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invitegate",
		Name:      "invitations_generated_total",
		Help:      "Invitation codes generated.",
	})
)
