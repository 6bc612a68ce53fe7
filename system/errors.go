package system

import "github.com/rotisserie/eris"

var (
	// ErrBindFailed is returned by a tick when an entity that was matched no longer holds what a
	// handle needs to bind to it.
	ErrBindFailed = eris.New("failed to bind system handle")

	ErrSystemAlreadyTracked = eris.New("system is already tracked")
	ErrSystemNotTracked     = eris.New("system is not tracked")
)
