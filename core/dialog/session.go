package dialog

import (
	"fmt"

	"github.com/jinzhu/copier"
)

type State string

const (
	StateInitial              State = "initial"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateAwaitingMissingItems State = "awaiting_missing_items"
)

func (s State) String() string {
	if s == "" {
		return string(StateInitial)
	}
	return string(s)
}

// Session is the per-conversation record the machine transitions. The zero
// value is a fresh conversation in [StateInitial].
type Session struct {
	State State
	// CurrentDish is empty whenever State is StateInitial.
	CurrentDish string
	// UnavailableItems only grows during a conversation. It is reset when a
	// dish gets cooked or the user asks for something else.
	UnavailableItems []string
}

func NewSession() Session {
	return Session{State: StateInitial}
}

// Clone returns a deep copy of the session so that the copy can be changed
// without affecting the original.
func (s Session) Clone() (Session, error) {
	var clone Session
	if err := copier.CopyWithOption(&clone, &s, copier.Option{DeepCopy: true}); err != nil {
		return Session{}, fmt.Errorf("failed to copy session: %w", err)
	}
	if s.UnavailableItems == nil {
		clone.UnavailableItems = nil
	}
	if clone.State == "" {
		clone.State = StateInitial
	}
	return clone, nil
}

func (s *Session) reset() {
	s.State = StateInitial
	s.CurrentDish = ""
	s.UnavailableItems = nil
}
