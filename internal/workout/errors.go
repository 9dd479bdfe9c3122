package workout

import "errors"

var (
	ErrUserRequired     = errors.New("user id is required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrExerciseNotFound = errors.New("exercise not in session")
	ErrExerciseRequired = errors.New("exercise id is required")
	ErrInvalidReorder   = errors.New("reorder must list every session exercise exactly once")
	ErrInvalidStatus    = errors.New("finalize status must be completed or cancelled")
	ErrInvalidPolicy    = errors.New("unknown start policy")
	ErrInvalidUnit      = errors.New("unknown weight unit")
	ErrInvalidOverride  = errors.New("invalid finalize override")
)
