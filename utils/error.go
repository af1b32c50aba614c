package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorIllegalTransition is returned when a workflow operation is invoked
// from a state it is not legal in. The target's state is left untouched.
var ErrorIllegalTransition = errors.New("operation is not legal from the current state")

// ErrorOperationInFlight is returned when the same operation is already
// outstanding for the same target.
var ErrorOperationInFlight = errors.New("operation already in progress")

// ErrorStreamBusy is returned when a second AI stream is requested for an
// entry that already has one active.
var ErrorStreamBusy = errors.New("another stream is active for this entry")

// ErrorAttestationRequired is returned when an override is attempted
// without attestation text. The UI disables the control as well; this is
// the server-side backstop.
var ErrorAttestationRequired = errors.New("attestation text is required")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
