package app

import (
	"errors"
	"fmt"

	"beergame/internal/domain"
)

var (
	// ErrConflict is returned when every update attempt lost to a concurrent writer.
	ErrConflict = errors.New("conflict, retry")

	ErrSessionNotFound = fmt.Errorf("%w: session", domain.ErrNotFound)
	ErrInvalidTicket   = fmt.Errorf("%w: invalid team ticket", domain.ErrValidation)
	ErrMissingSession  = fmt.Errorf("%w: session reference is required", domain.ErrValidation)
)
