package address

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("address not found")

// Address is a postal address owned by a user.
type Address struct {
	ID         string
	UserID     string
	FullName   string
	Line1      string
	Line2      string
	PostalCode string
	City       string
	Country    string

	// MirroredFromID is set when the address was produced by Mirror and
	// points at the source address.
	MirroredFromID string
}

// Mirrored reports whether the address is a copy of another address.
func (a *Address) Mirrored() bool {
	return a.MirroredFromID != ""
}

// Mirror returns a new address with the postal fields of src, a fresh id,
// and provenance pointing back at src. Used to derive a billing address from
// the shipping address.
func Mirror(src Address, id string) Address {
	return Address{
		ID:             id,
		UserID:         src.UserID,
		FullName:       src.FullName,
		Line1:          src.Line1,
		Line2:          src.Line2,
		PostalCode:     src.PostalCode,
		City:           src.City,
		Country:        src.Country,
		MirroredFromID: src.ID,
	}
}

// Repository defines persistence operations for addresses.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Address, error)
	Create(ctx context.Context, a *Address) error
}
