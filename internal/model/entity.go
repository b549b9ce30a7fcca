// Package model defines core data structures and types for the catalog console.
package model

// EntityType identifies a catalog entity kind. The parent entity is the boat;
// everything else is a nested sub-resource of it.
type EntityType string

const (
	EntityBoat        EntityType = "BOAT"
	EntityCabin       EntityType = "CABIN"
	EntityExperience  EntityType = "EXPERIENCE"
	EntityFacility    EntityType = "FACILITY"
	EntityDeck        EntityType = "DECK"
	EntityDestination EntityType = "DESTINATION"
)

var entityTypes = map[EntityType]bool{
	EntityBoat:        true,
	EntityCabin:       true,
	EntityExperience:  true,
	EntityFacility:    true,
	EntityDeck:        true,
	EntityDestination: true,
}

func (e EntityType) Valid() bool {
	return entityTypes[e]
}
