package compose

import "fmt"

type Field int

const (
	FieldRecipient Field = iota + 1
	FieldSubject
	FieldBody
)

func (f Field) String() string {
	switch f {
	case FieldRecipient:
		return "recipient"
	case FieldSubject:
		return "subject"
	case FieldBody:
		return "body"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func parseField(s string) (Field, bool) {
	switch s {
	case "recipient":
		return FieldRecipient, true
	case "subject":
		return FieldSubject, true
	case "body":
		return FieldBody, true
	}
	return 0, false
}

// State is the step of a compose conversation. The set of implementations is
// closed; switch on the concrete type.
type State interface {
	Name() string
	isState()
}

type (
	Inactive                struct{}
	AwaitingRecipient       struct{}
	AwaitingSubject         struct{}
	AwaitingBody            struct{}
	AwaitingConfirmation    struct{}
	AwaitingChangeSelection struct{}
)

// AwaitingChangeValue waits for the replacement value of one draft field.
// It is only produced from AwaitingChangeSelection.
type AwaitingChangeValue struct {
	field Field
}

func (s AwaitingChangeValue) Field() Field { return s.field }

func (Inactive) Name() string                { return "inactive" }
func (AwaitingRecipient) Name() string       { return "awaiting_recipient" }
func (AwaitingSubject) Name() string         { return "awaiting_subject" }
func (AwaitingBody) Name() string            { return "awaiting_body" }
func (AwaitingConfirmation) Name() string    { return "awaiting_confirmation" }
func (AwaitingChangeSelection) Name() string { return "awaiting_change_selection" }
func (AwaitingChangeValue) Name() string     { return "awaiting_change_value" }

func (Inactive) isState()                {}
func (AwaitingRecipient) isState()       {}
func (AwaitingSubject) isState()         {}
func (AwaitingBody) isState()            {}
func (AwaitingConfirmation) isState()    {}
func (AwaitingChangeSelection) isState() {}
func (AwaitingChangeValue) isState()     {}

func stateByName(name string) (State, bool) {
	switch name {
	case "", "inactive":
		return Inactive{}, true
	case "awaiting_recipient":
		return AwaitingRecipient{}, true
	case "awaiting_subject":
		return AwaitingSubject{}, true
	case "awaiting_body":
		return AwaitingBody{}, true
	case "awaiting_confirmation":
		return AwaitingConfirmation{}, true
	case "awaiting_change_selection":
		return AwaitingChangeSelection{}, true
	}
	return nil, false
}
