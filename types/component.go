package types

// Component is the interface that the user needs to implement to create a new component type.
// The name is the stable tag the component registry keys ids on, so it must be unique per world.
type Component interface {
	// Name returns the name of the component.
	Name() string
}

// ArchetypeID is the index of an archetype in the order archetypes were created.
type ArchetypeID int
