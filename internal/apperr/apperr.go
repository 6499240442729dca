// Package apperr defines the closed set of domain error kinds returned by the
// game services. Handlers map kinds to HTTP statuses; everything else is an
// internal failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidWord
	GameFinished
	Conflict
	Invalid
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidWord:
		return "invalid_word"
	case GameFinished:
		return "game_finished"
	case Conflict:
		return "conflict"
	case Invalid:
		return "invalid"
	case Unauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error carries a Kind and a human readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is matches any *Error with the same Kind, so sentinel values below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound     = &Error{Kind: NotFound}
	ErrInvalidWord  = &Error{Kind: InvalidWord}
	ErrGameFinished = &Error{Kind: GameFinished}
	ErrConflict     = &Error{Kind: Conflict}
	ErrInvalid      = &Error{Kind: Invalid}
	ErrUnauthorized = &Error{Kind: Unauthorized}
)

// New builds an *Error with a formatted message.
func New(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
