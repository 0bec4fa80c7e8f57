package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record_not_found")
	ErrStaleVersion   = errors.New("stale_cache_version")
	ErrUnknownView    = errors.New("unknown_view")
	ErrInvalidRole    = errors.New("invalid_role")
)

type GatewayErrorKind string

const (
	GatewayUnauthorized GatewayErrorKind = "unauthorized"
	GatewayNotFound     GatewayErrorKind = "not_found"
	GatewayServerError  GatewayErrorKind = "server_error"
	GatewayNetwork      GatewayErrorKind = "network"
	GatewayMalformed    GatewayErrorKind = "malformed"
)

// GatewayError is the only error shape the gateway returns.
type GatewayError struct {
	Kind       GatewayErrorKind
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s [%d]: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Kind, e.Message)
}

// IsGatewayKind reports whether err is a GatewayError of the given kind.
func IsGatewayKind(err error, kind GatewayErrorKind) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == kind
}

type OrchestratorErrorKind string

const (
	UserDeclined  OrchestratorErrorKind = "user_declined"
	GatewayFailed OrchestratorErrorKind = "gateway_failed"
	StaleTarget   OrchestratorErrorKind = "stale_target"
	Suppressed    OrchestratorErrorKind = "mutation_in_flight"
)

type OrchestratorError struct {
	Kind  OrchestratorErrorKind
	ID    ID
	Cause error
}

func (e *OrchestratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (id=%s): %v", e.Kind, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s (id=%s)", e.Kind, e.ID)
}

func (e *OrchestratorError) Unwrap() error { return e.Cause }

// OrchestratorKind extracts the orchestrator error kind, or "" if err is not one.
func OrchestratorKind(err error) OrchestratorErrorKind {
	var oe *OrchestratorError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
