// Package wizard models the three-stage signup flow as an explicit state
// carried in the session between requests.
package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stage is the step the visitor is expected to complete next.
type Stage string

const (
	AwaitingInfo         Stage = "awaiting_info"
	AwaitingPassword     Stage = "awaiting_password"
	AwaitingConfirmation Stage = "awaiting_confirmation"
)

// Step names a page of the wizard.
type Step int

const (
	StepInfo Step = iota
	StepPassword
	StepConfirm
)

// Path of each step, and of the page shown once the account exists.
const (
	InfoPath     = "/signup/"
	PasswordPath = "/signup_password/"
	ConfirmPath  = "/signup_confirm/"
	ThanksPath   = "/thanks/"
)

var (
	ErrMissingInfo     = errors.New("wizard: account info has not been submitted")
	ErrMissingPassword = errors.New("wizard: password has not been submitted")
	ErrUnknownEvent    = errors.New("wizard: unknown event")
)

// Info is the validated stage-one data.
type Info struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

// Password is the validated stage-two data. It lives only in server-side
// session storage and is hashed when the account is created.
type Password struct {
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// State is the tagged wizard state. Info is set from AwaitingPassword on,
// Password only in AwaitingConfirmation.
type State struct {
	Stage    Stage     `json:"stage"`
	Info     *Info     `json:"info,omitempty"`
	Password *Password `json:"password,omitempty"`
}

// Start is the state of a visitor who has submitted nothing.
func Start() State {
	return State{Stage: AwaitingInfo}
}

// Event drives a transition.
type Event interface {
	event()
}

// InfoSubmitted carries a valid stage-one form.
type InfoSubmitted struct{ Info Info }

// PasswordSubmitted carries a valid stage-two form.
type PasswordSubmitted struct{ Password Password }

// Confirmed marks the account as created.
type Confirmed struct{}

func (InfoSubmitted) event()     {}
func (PasswordSubmitted) event() {}
func (Confirmed) event()         {}

// Transition applies e to s. The input state is never modified.
//
// Info may be resubmitted from any stage (back navigation); doing so drops
// a stored password because it was checked against the old username.
func Transition(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case InfoSubmitted:
		info := ev.Info
		return State{Stage: AwaitingPassword, Info: &info}, nil

	case PasswordSubmitted:
		if s.Info == nil || s.Stage == AwaitingInfo {
			return s, ErrMissingInfo
		}
		info := *s.Info
		pw := ev.Password
		return State{Stage: AwaitingConfirmation, Info: &info, Password: &pw}, nil

	case Confirmed:
		if s.Stage != AwaitingConfirmation || s.Info == nil || s.Password == nil {
			return s, ErrMissingPassword
		}
		return Start(), nil
	}
	return s, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
}

// Redirect reports where a visitor asking for step should be sent instead.
// A missing prerequisite always sends them back to the first stage.
func Redirect(s State, step Step) (string, bool) {
	switch step {
	case StepPassword:
		if s.Info == nil {
			return InfoPath, true
		}
	case StepConfirm:
		if s.Info == nil || s.Password == nil {
			return InfoPath, true
		}
	}
	return "", false
}

// Encode serializes s for the session store.
func Encode(s State) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode wizard state: %w", err)
	}
	return string(b), nil
}

// Decode restores a state written by Encode. An empty or unreadable value
// yields Start, matching an expired session.
func Decode(raw string) State {
	if raw == "" {
		return Start()
	}
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Start()
	}
	switch s.Stage {
	case AwaitingPassword:
		if s.Info == nil {
			return Start()
		}
		s.Password = nil
	case AwaitingConfirmation:
		if s.Info == nil || s.Password == nil {
			return Start()
		}
	default:
		return Start()
	}
	return s
}
