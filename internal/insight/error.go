package insight

import "fmt"

// Kind classifies why an insight request failed.
type Kind string

const (
	KindMissingKey Kind = "missing_key"
	KindTransport  Kind = "transport"
	KindStatus     Kind = "status"
	KindDecode     Kind = "decode"
	KindEmpty      Kind = "empty"
)

// Error is returned for every failed insight request. Status is the HTTP
// status for KindStatus and zero otherwise.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("insight provider error %d: %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("insight %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("insight %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
