package app

const (
	// MaxUpdateAttempts bounds how often a transition is re-applied after losing a save race.
	MaxUpdateAttempts = 3

	// JoinCodeLength is the length of generated join codes.
	JoinCodeLength = 4
	// maxJoinCodeAttempts bounds retries when a generated code is already taken.
	maxJoinCodeAttempts = 8
)

// joinCodeAlphabet leaves out characters that are easy to misread on a projector.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
