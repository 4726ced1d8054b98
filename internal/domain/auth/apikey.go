package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/user"
)

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// ScopeAdmin marks keys whose holder may act on other users' orders.
const ScopeAdmin = "admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// Actor resolves the key holder into the explicit identity passed to the
// pipeline.
func (k *APIKeyInfo) Actor() user.Actor {
	return user.Actor{
		UserID:     k.UserID,
		Privileged: slices.Contains(k.Scopes, ScopeAdmin),
	}
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
