package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/user"
)

// APIKeyHeader carries the raw API key.
const APIKeyHeader = "api_key"

type actorKey struct{}

// ActorFromContext returns the actor resolved by Authenticate.
func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(user.Actor)
	return a, ok
}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a user.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API
// keys and resolves the key holder into a user.Actor.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{apikeys: apikeys, pepper: pepper}
}

// Authenticate rejects requests without a valid API key with 401 and passes
// the rest on with the actor in the context.
func (s *SecurityHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		info, err := s.resolve(r.Context(), key)
		if err != nil {
			if !errors.Is(err, auth.ErrKeyNotFound) {
				zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		actor := info.Actor()
		ctx := zctx.With(WithActor(r.Context(), actor),
			zap.String("user_id", actor.UserID),
			zap.String("api_key_id", info.ID),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *SecurityHandler) resolve(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	hexHash := auth.HashKey(key, s.pepper)

	info, err := s.apikeys.FindByHash(ctx, hexHash)
	if err != nil {
		return nil, err
	}

	// The store matched on the hash; compare again in constant time in case
	// it returned a different row.
	want, err := hex.DecodeString(hexHash)
	if err != nil {
		return nil, errors.Wrap(err, "decode computed hash")
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, auth.ErrKeyNotFound
	}
	if subtle.ConstantTimeCompare(want, stored) != 1 {
		return nil, auth.ErrKeyNotFound
	}
	return info, nil
}
