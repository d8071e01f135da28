// Package taskstatus holds the task lifecycle: three states, every state
// reachable from every other, no terminal state.
package taskstatus

import "github.com/tehokas/taskdeck/internal/apperrors"

type Status string

const (
	Pending    Status = "pending"
	InProgress Status = "in_progress"
	Done       Status = "done"
)

// Initial is the status a task gets when the caller does not pick one.
const Initial = Pending

func All() []Status {
	return []Status{Pending, InProgress, Done}
}

func (s Status) Valid() bool {
	switch s {
	case Pending, InProgress, Done:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Parse accepts only the exact wire values.
func Parse(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", apperrors.InvalidStatus(value)
	}
	return s, nil
}

// Subject is anything carrying a task status.
type Subject interface {
	CurrentStatus() Status
	SetStatus(Status)
}

// Transition moves subject to next. Moving to the current status succeeds
// without touching the subject and reports changed == false. An invalid value
// leaves the subject unchanged.
func Transition(subject Subject, next string) (changed bool, err error) {
	target, err := Parse(next)
	if err != nil {
		return false, err
	}

	if subject.CurrentStatus() == target {
		return false, nil
	}

	subject.SetStatus(target)
	return true, nil
}
