package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition failed")
)

var (
	ErrInvalidRole    = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrNegativeAmount = fmt.Errorf("%w: order amount must be >= 0", ErrValidation)
	ErrMissingTeamID  = fmt.Errorf("%w: team id is required", ErrValidation)
	ErrMissingName    = fmt.Errorf("%w: team name is required", ErrValidation)
	ErrInvalidConfig  = fmt.Errorf("%w: invalid game config", ErrValidation)
	ErrUnknownPattern = fmt.Errorf("%w: unknown demand pattern", ErrValidation)

	ErrUnknownTeam = fmt.Errorf("%w: team", ErrNotFound)

	ErrNotInLobby   = fmt.Errorf("%w: session not in lobby", ErrPrecondition)
	ErrNotPlaying   = fmt.Errorf("%w: session not in playing phase", ErrPrecondition)
	ErrNotStarted   = fmt.Errorf("%w: session has not started", ErrPrecondition)
	ErrRoundLocked  = fmt.Errorf("%w: team is not accepting orders", ErrPrecondition)
	ErrTeamFinished = fmt.Errorf("%w: team has played every round", ErrPrecondition)
	ErrNoTeams      = fmt.Errorf("%w: session has no teams", ErrPrecondition)
)
