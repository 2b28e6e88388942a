package contracts

import (
	"errors"
)

var (
	// ErrNilMessage is returned when a nil message is sent, published or requested
	ErrNilMessage = errors.New("message cannot be nil")

	// ErrNilHandler is returned when a nil handler, consumer or pipe is registered
	ErrNilHandler = errors.New("handler cannot be nil")
)
