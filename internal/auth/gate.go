package auth

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// Decision results counted by the gate.
const (
	resultAllowed      = "allowed"
	resultUnauthorized = "unauthorized"
	resultForbidden    = "forbidden"
	resultError        = "error"
)

// Gate answers "may this user do that here" for the page and action layer.
type Gate struct {
	svc       *Service
	decisions *prometheus.CounterVec
}

// NewGate creates a gate. Decisions are registered with reg, a nil reg keeps the counter unregistered.
func NewGate(svc *Service, reg prometheus.Registerer) *Gate {
	return &Gate{
		svc: svc,
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantadmin",
			Name:      "authz_decisions_total",
			Help:      "Number of authorization decisions, differentiated by result.",
		}, []string{"result"}),
	}
}

// Service returns the aggregator behind the gate.
func (g *Gate) Service() *Service {
	return g.svc
}

// RequireAny succeeds when the user's permission set in the context allows at least one of keys.
// Without keys any authenticated user passes. The permission set is returned for further checks.
func (g *Gate) RequireAny(ctx context.Context, userID string, tenantID *string, keys ...string) (PermissionSet, error) {
	if userID == "" {
		g.decisions.WithLabelValues(resultUnauthorized).Inc()
		return nil, ErrUnauthorized
	}

	set, err := g.svc.GetPermissions(ctx, userID, tenantID)
	if err != nil {
		g.decisions.WithLabelValues(resultError).Inc()
		return nil, err
	}

	if len(keys) > 0 && !set.AllowsAny(keys...) {
		g.decisions.WithLabelValues(resultForbidden).Inc()
		log.Debug().Str("user_id", userID).Strs("permissions", keys).Msg("user lacks required permissions")

		return set, fmt.Errorf("%w: requires one of %v", ErrForbiddenInsufficientPermissions, keys)
	}

	g.decisions.WithLabelValues(resultAllowed).Inc()

	return set, nil
}

// RequireCentral succeeds only for holders of central_superadmin.
func (g *Gate) RequireCentral(ctx context.Context, userID string) error {
	if userID == "" {
		g.decisions.WithLabelValues(resultUnauthorized).Inc()
		return ErrUnauthorized
	}

	ok, err := g.svc.HoldsRole(ctx, userID, models.RoleCentralSuperadmin, nil)
	if err != nil {
		g.decisions.WithLabelValues(resultError).Inc()
		return err
	}

	if !ok {
		g.decisions.WithLabelValues(resultForbidden).Inc()
		return ErrForbiddenCentralAccess
	}

	g.decisions.WithLabelValues(resultAllowed).Inc()

	return nil
}
