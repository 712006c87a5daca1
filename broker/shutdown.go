package broker

import (
	"errors"
	"io"
	"net"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonwraymond/resilientmq/resilience"
)

// recoverableReplyCodes are soft (channel-level, Recover == true) AMQP reply
// codes that a retry should treat as transient. 320 CONNECTION-FORCED is
// deliberately absent: any hard closure is already routed to
// KindTransportShutdown below, before reply codes are even consulted.
var recoverableReplyCodes = map[int]bool{
	311: true, // CONTENT-TOO-LARGE
	405: true, // RESOURCE-LOCKED
}

// fatalAuthReplyCodes are soft reply codes that indicate the credentials
// themselves were refused, rather than a transient server condition.
var fatalAuthReplyCodes = map[int]bool{
	403: true, // ACCESS-REFUSED
}

// ClassifyError is the resilience.Classifier wired into every Resource this
// package constructs. It never inspects anything but err's own type and, if
// present, the *amqp.Error it wraps.
func ClassifyError(err error) resilience.Classification {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return classifyAMQPError(amqpErr)
	}
	if isIOError(err) {
		return resilience.Classification{Kind: resilience.KindIO}
	}
	return resilience.Classification{Kind: resilience.KindApplication}
}

func classifyAMQPError(e *amqp.Error) resilience.Classification {
	if !e.Recover {
		return resilience.Classification{Kind: resilience.KindTransportShutdown, ConnectionLevel: true}
	}
	if e.Code == 0 {
		return resilience.Classification{Kind: resilience.KindIO}
	}
	if fatalAuthReplyCodes[e.Code] {
		return resilience.Classification{Kind: resilience.KindAuthentication}
	}
	if recoverableReplyCodes[e.Code] {
		return resilience.Classification{Kind: resilience.KindChannelShutdown, Recoverable: true}
	}
	return resilience.Classification{Kind: resilience.KindChannelShutdown, Recoverable: false}
}

func isIOError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
