package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyInfo_Actor(t *testing.T) {
	regular := &APIKeyInfo{UserID: "u1", Scopes: []string{"orders"}}
	assert.Equal(t, "u1", regular.Actor().UserID)
	assert.False(t, regular.Actor().Privileged)

	admin := &APIKeyInfo{UserID: "ops", Scopes: []string{"orders", ScopeAdmin}}
	assert.True(t, admin.Actor().Privileged)
	assert.True(t, admin.Actor().CanActFor("u1"))
}

func TestHashKey(t *testing.T) {
	h := HashKey("secret", []byte("pepper"))
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey("secret", []byte("pepper")))
	assert.NotEqual(t, h, HashKey("secret", []byte("other")))
	assert.NotEqual(t, h, HashKey("Secret", []byte("pepper")))
}
