package reasoner

import "fmt"

// FatalError is the common interface for every error that must abort the
// whole reasoning pass (spec Section 7: "no local recovery"). Any actor
// handler that panics or returns one of these calls
// NodeRegistry.Terminate(e), which drops future scheduled closures and
// delivers Done(cause) to the consumer queue.
type FatalError interface {
	error
	Unwrap() error
	NodeID() int64
}

type fatalBase struct {
	nodeID int64
	cause  error
}

func (f fatalBase) NodeID() int64 { return f.nodeID }
func (f fatalBase) Unwrap() error { return f.cause }

// ProtocolViolationError reports that a port received a message
// inconsistent with its current state, or that an AnswerTable precondition
// (append-past-terminal, subscribe-past-size) was violated. These are
// programming errors, not recoverable runtime conditions.
type ProtocolViolationError struct {
	fatalBase
	Detail string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("reasoner: protocol violation at node %d: %s", e.nodeID, e.Detail)
}

// NewProtocolViolationError constructs a ProtocolViolationError.
func NewProtocolViolationError(nodeID int64, detail string) *ProtocolViolationError {
	return &ProtocolViolationError{fatalBase: fatalBase{nodeID: nodeID}, Detail: detail}
}

// IllegalMessageError reports a message whose Kind the receiving handler
// does not recognise.
type IllegalMessageError struct {
	fatalBase
	Kind Kind
}

func (e *IllegalMessageError) Error() string {
	return fmt.Sprintf("reasoner: illegal message kind %s at node %d", e.Kind, e.nodeID)
}

// NewIllegalMessageError constructs an IllegalMessageError.
func NewIllegalMessageError(nodeID int64, kind Kind) *IllegalMessageError {
	return &IllegalMessageError{fatalBase: fatalBase{nodeID: nodeID}, Kind: kind}
}

// CollaboratorError wraps a failure from an out-of-scope collaborator
// (traversal iterator, materialiser, concept manager). It is surfaced
// unchanged (via %w) to the external consumer.
type CollaboratorError struct {
	fatalBase
	Collaborator string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("reasoner: %s failed at node %d: %v", e.Collaborator, e.nodeID, e.cause)
}

// NewCollaboratorError constructs a CollaboratorError wrapping cause.
func NewCollaboratorError(nodeID int64, collaborator string, cause error) *CollaboratorError {
	return &CollaboratorError{fatalBase: fatalBase{nodeID: nodeID, cause: cause}, Collaborator: collaborator}
}

// asFatal converts an arbitrary recovered panic value or error into a
// FatalError, preserving it if it already is one.
func asFatal(nodeID int64, r any) FatalError {
	switch v := r.(type) {
	case FatalError:
		return v
	case error:
		return NewProtocolViolationError(nodeID, v.Error())
	default:
		return NewProtocolViolationError(nodeID, fmt.Sprintf("%v", v))
	}
}
