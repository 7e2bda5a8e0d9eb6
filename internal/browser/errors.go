package browser

import "errors"

var (
	// ErrSessionUnavailable means the remote service never signalled it was
	// ready to accept input. Fatal to the whole task.
	ErrSessionUnavailable = errors.New("remote session unavailable")

	// ErrInputUnavailable means no interactive input surface could be
	// located for the current submit call.
	ErrInputUnavailable = errors.New("no interactive input surface")

	// ErrArtifactUnavailable means no downloadable result was found after a
	// generation turn. Non-fatal: it fails the item, not the task.
	ErrArtifactUnavailable = errors.New("no result artifact found")
)
