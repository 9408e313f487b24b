package domain

import "errors"

// Storage-boundary sentinels. The repository returns these; the app layer
// wraps them into kinds below.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Kind string

const (
	KindUnauthorized        Kind = "unauthorized"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindNotConnected        Kind = "not_connected"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	KindUpstreamConfig      Kind = "upstream_config"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindPublishFailed       Kind = "publish_failed"
	KindStorage             Kind = "storage"
)

// Error is the taxonomy crossing the app boundary. Message is safe to show
// to callers; Err carries upstream detail and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf classifies any error; unclassified errors count as storage faults.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}

// PublicMessage returns the caller-facing message for err. Upstream config
// problems are masked so provider detail never leaks to end users.
func PublicMessage(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return "internal error"
	}
	switch de.Kind {
	case KindUpstreamConfig:
		return "upstream service is misconfigured"
	case KindStorage:
		return "internal error"
	}
	return de.Message
}
