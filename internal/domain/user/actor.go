// Package user holds the identity passed explicitly into every pipeline
// operation.
package user

// Actor is the authenticated caller. Privileged is resolved by the
// authentication layer before the core is invoked.
type Actor struct {
	UserID     string
	Privileged bool
}

// CanActFor reports whether the actor may operate on resources owned by
// userID.
func (a Actor) CanActFor(userID string) bool {
	return a.Privileged || a.UserID == userID
}
