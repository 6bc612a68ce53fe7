package gamestate

import (
	"github.com/rotisserie/eris"
)

var (
	ErrEntityDoesNotExist     = eris.New("entity does not exist")
	ErrComponentNotRegistered = eris.New("must register component")
	ErrInvalidComponentID     = eris.New("component id is not a valid identifier")
	ErrCannotRemoveComponent  = eris.New("registered components cannot be removed as entities")
	ErrNilPayload             = eris.New("component payload must not be nil")
	ErrPayloadOnTag           = eris.New("a relation that does not hold data cannot carry a payload")
	ErrEntityIDsExhausted     = eris.New("no entity ids left")

	// ErrCollectionAsComponent is raised (as a panic) when a collection of components is handed to an
	// API that stores a single component. Use the SetAll helpers instead.
	ErrCollectionAsComponent = eris.New("a collection of components cannot be stored as a single component")
)
