package event

import (
	"errors"
	"fmt"
)

// ErrUnexpectedPayload is returned by a handler that received an envelope
// whose payload variant does not match its event type.
var ErrUnexpectedPayload = errors.New("unexpected payload type")

// DispatchError reports an infrastructure-level failure while fanning out an
// event. Unlike handler failures it surfaces to the caller of Emit/EmitAsync.
type DispatchError struct {
	EventType string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch event of type %s: %v", e.EventType, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// HandlerError wraps a single subscriber's failure. It is logged and counted
// but never propagated out of the dispatch loop.
type HandlerError struct {
	EventType string
	Handler   string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q failed for event type %s: %v", e.Handler, e.EventType, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// SerializationError means an envelope could not be turned into a storable
// form. It is raised from StoreEvent since an unpersistable event cannot be
// recovered later.
type SerializationError struct {
	EventType string
	Err       error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize event of type %s: %v", e.EventType, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError means a stored record could not be turned back into an
// envelope. Recovery isolates it to the affected record.
type DeserializationError struct {
	EventType string
	Err       error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to deserialize event of type %s: %v", e.EventType, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }
