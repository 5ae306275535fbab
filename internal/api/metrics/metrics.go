// Package metrics defines all custom Prometheus metrics for the identity
// API. It is the single source of truth for metric names, labels, and help
// strings. Metrics register themselves with the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Authentication flows ─────────────────────────────────────────────────────

// SignInsTotal counts password sign-in attempts.
// Labels:
//   - result: "success", "invalid_credentials", "suspended", "locked",
//     "not_a_member", "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of password sign-in attempts, by result.",
	},
	[]string{"result"},
)

// SignUpsTotal counts sign-up attempts.
// Labels:
//   - result: "success", "disposable_email", "weak_password", "exists", "error"
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ups_total",
		Help:      "Total number of sign-up attempts, by result.",
	},
	[]string{"result"},
)

// OAuthSignInsTotal counts OAuth callback resolutions.
// Labels:
//   - provider: provider name ("google", "github", …)
//   - result: "success" or "error"
var OAuthSignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_sign_ins_total",
		Help:      "Total number of OAuth sign-in callbacks, by provider and result.",
	},
	[]string{"provider", "result"},
)

// MagicLinksIssuedTotal counts issued magic links by purpose.
var MagicLinksIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "magic_links_issued_total",
		Help:      "Total number of magic links issued, by purpose.",
	},
	[]string{"purpose"},
)

// ── Authorization gate ───────────────────────────────────────────────────────

// GateRejectionsTotal counts requests rejected by the authorization gate.
// Labels:
//   - reason: "rate_limited", "missing_token", "invalid_token",
//     "session_invalid"
var GateRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_rejections_total",
		Help:      "Total number of requests rejected by the authorization gate, by reason.",
	},
	[]string{"reason"},
)

// ── Sessions ─────────────────────────────────────────────────────────────────

// SessionsRevokedTotal counts revoked sessions.
// Labels:
//   - scope: "single" (sign-out / revoke) or "all" (sign out everywhere)
var SessionsRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked, by scope.",
	},
	[]string{"scope"},
)
