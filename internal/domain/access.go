package domain

import "github.com/google/uuid"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// CanAccess reports whether actor may act on a resource owned by ownerID.
// Admins may act on any resource; everybody else only on their own.
func CanAccess(actorID, ownerID uuid.UUID, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	return actorID != uuid.Nil && actorID == ownerID
}

// Owns is CanAccess for an Actor value.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return CanAccess(a.ID, ownerID, a.IsAdmin)
}
