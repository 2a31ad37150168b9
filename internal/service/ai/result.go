package ai

import (
	"errors"
	"fmt"
)

var (
	ErrCommunication = errors.New("failed to communicate with the model provider")
	ErrEmptyReply    = errors.New("model provider returned an empty reply")
)

// FailureKind classifies why an exchange produced no reply.
type FailureKind int

const (
	NoFailure FailureKind = iota
	CommunicationFailure
	EmptyReply
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "none"
	case CommunicationFailure:
		return "communication_failure"
	case EmptyReply:
		return "empty_reply"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Result is the outcome of one exchange. Reply is non-empty exactly when Failure is NoFailure.
type Result struct {
	Reply   string
	Failure FailureKind
	cause   error
}

// OK reports whether the exchange produced a reply.
func (r Result) OK() bool {
	return r.Failure == NoFailure
}

// Err returns nil on success, otherwise an error matching ErrCommunication or ErrEmptyReply.
func (r Result) Err() error {
	switch r.Failure {
	case NoFailure:
		return nil
	case EmptyReply:
		return ErrEmptyReply
	default:
		if r.cause != nil {
			return fmt.Errorf("%w: %w", ErrCommunication, r.cause)
		}
		return ErrCommunication
	}
}

func communicationFailure(cause error) Result {
	return Result{Failure: CommunicationFailure, cause: cause}
}
