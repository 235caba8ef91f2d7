package flight

import "time"

// EventKind tags an [UpdateEvent].
type EventKind int

const (
	// EventSuccess carries a [Batch].
	EventSuccess EventKind = iota + 1

	// EventFailure carries an [ErrorKind] and message.
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	default:
		return "invalid"
	}
}

// UpdateEvent is what the poller emits once per poll attempt.
//
// Exactly one of Batch (for [EventSuccess]) or ErrKind/Message (for
// [EventFailure]) is meaningful. Status is the connection snapshot taken
// right after the attempt and NextPoll is the delay before the next attempt.
type UpdateEvent struct {
	Kind     EventKind
	Batch    Batch
	ErrKind  ErrorKind
	Message  string
	Status   ConnectionStatus
	NextPoll time.Duration
	At       time.Time
}

// Success builds a success event.
func Success(batch Batch, status ConnectionStatus) UpdateEvent {
	return UpdateEvent{
		Kind:   EventSuccess,
		Batch:  batch,
		Status: status,
		At:     batch.CapturedAt,
	}
}

// Failure builds a failure event.
func Failure(kind ErrorKind, message string, status ConnectionStatus, at time.Time) UpdateEvent {
	return UpdateEvent{
		Kind:    EventFailure,
		ErrKind: kind,
		Message: message,
		Status:  status,
		At:      at,
	}
}

// IsSuccess reports whether the event carries a batch.
func (e UpdateEvent) IsSuccess() bool {
	return e.Kind == EventSuccess
}
