package broker

import (
	"errors"

	"github.com/jonwraymond/resilientmq/resilience"
)

// ErrorKind is a broker-level classification, richer than
// resilience.ErrorKind, used for logging and diagnostics only — it never
// feeds back into the retry engine, which only ever sees
// resilience.Classification.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindApplication
	KindIO
	KindChannelShutdown
	KindConnectionShutdown
	KindAuthentication
	KindPolicyExceeded
	KindClosed
	KindRecoveryFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindIO:
		return "io"
	case KindChannelShutdown:
		return "channel_shutdown"
	case KindConnectionShutdown:
		return "connection_shutdown"
	case KindAuthentication:
		return "authentication"
	case KindPolicyExceeded:
		return "policy_exceeded"
	case KindClosed:
		return "closed"
	case KindRecoveryFailure:
		return "recovery_failure"
	default:
		return "unknown"
	}
}

var (
	// ErrResourceClosed is returned by any broker call made after Close has
	// completed on its owning connection or channel.
	ErrResourceClosed = resilience.ErrResourceClosed

	// ErrPolicyExceeded is returned when a retry budget is spent without
	// the operation ever succeeding.
	ErrPolicyExceeded = resilience.ErrPolicyExceeded

	// ErrNoCredentials is returned when dialing is attempted without a DSN
	// or a credentials provider configured.
	ErrNoCredentials = errors.New("broker: no credentials configured")

	// ErrDialFailed is returned when every URL in a dial attempt's
	// candidate list fails.
	ErrDialFailed = errors.New("broker: dial failed against every candidate URL")
)

// Kind classifies err for logging purposes. It is independent of, and more
// detailed than, the resilience.Classification ClassifyError produces for
// the retry engine.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	switch {
	case errors.Is(err, ErrResourceClosed):
		return KindClosed
	case errors.Is(err, ErrPolicyExceeded):
		return KindPolicyExceeded
	}

	class := ClassifyError(err)
	switch class.Kind {
	case resilience.KindTransportShutdown:
		return KindConnectionShutdown
	case resilience.KindChannelShutdown:
		return KindChannelShutdown
	case resilience.KindIO:
		return KindIO
	case resilience.KindAuthentication:
		return KindAuthentication
	default:
		return KindApplication
	}
}
