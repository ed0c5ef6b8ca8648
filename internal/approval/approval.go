// Package approval holds the pending → approved/rejected state machine shared
// by deposit requests and listing posts.
package approval

import (
	"errors"
	"fmt"
)

type Status string

const (
	Pending  Status = "pending"
	Approved Status = "approved"
	Rejected Status = "rejected"
)

var (
	ErrNotPending        = errors.New("not in pending state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

func Parse(raw string) (Status, error) {
	switch Status(raw) {
	case Pending, Approved, Rejected:
		return Status(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func (s Status) IsTerminal() bool {
	return s == Approved || s == Rejected
}

func (s Status) String() string {
	return string(s)
}

// Transition validates moving from one status to another. Terminal states
// admit no further transitions.
func Transition(from, to Status) error {
	if _, err := Parse(string(from)); err != nil {
		return err
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: already %s", ErrNotPending, from)
	}
	if !to.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
