package adapter

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure. The classification is produced once,
// here at the transport boundary; everything above consumes the tag and
// never re-inspects response shapes.
type Kind string

const (
	// KindBreakerOpen is synthetic: the circuit breaker rejected the
	// request before it touched the network.
	KindBreakerOpen Kind = "breaker_open"

	// KindNetworkUnavailable means no response was received: connection
	// refused, DNS failure, or request timeout. Mutations absorb it into
	// the offline queue instead of surfacing an error.
	KindNetworkUnavailable Kind = "network_unavailable"

	// KindServerError is a 5xx response, retried up to the bound.
	KindServerError Kind = "server_error"

	// KindClientError is a non-auth, non-plan 4xx. Never retried.
	KindClientError Kind = "client_error"

	// KindAuthExpired is a 401. Local auth state has already been wiped
	// by the time the caller sees this.
	KindAuthExpired Kind = "auth_expired"

	// KindPlanLimit is a 403 on a plan-limited resource, surfaced
	// distinctly so the UI can render an upgrade prompt instead of a
	// generic failure.
	KindPlanLimit Kind = "plan_limit"
)

// Error is the single failure type the request client produces.
type Error struct {
	Kind      Kind
	Status    int // HTTP status; 0 when no response was received
	RequestID string
	Message   string
	Exhausted bool // the retry budget was spent on this failure
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (http %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf extracts the failure kind, or "" for non-transport errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsBreakerOpen(err error) bool        { return KindOf(err) == KindBreakerOpen }
func IsNetworkUnavailable(err error) bool { return KindOf(err) == KindNetworkUnavailable }
func IsServerError(err error) bool        { return KindOf(err) == KindServerError }
func IsClientError(err error) bool        { return KindOf(err) == KindClientError }
func IsAuthExpired(err error) bool        { return KindOf(err) == KindAuthExpired }
func IsPlanLimit(err error) bool          { return KindOf(err) == KindPlanLimit }
