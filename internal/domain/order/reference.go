package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// newReference builds a human-readable order reference of the form
// USERPART-YYYYMMDD-XXXXXXXX from the owner id, the creation date and a
// random disambiguator. Uniqueness is enforced by the store.
func newReference(userID string, at time.Time) string {
	return formatReference(userID, at, randomToken())
}

func formatReference(userID string, at time.Time, token string) string {
	userPart := strings.ToUpper(strings.ReplaceAll(userID, "-", ""))
	if len(userPart) > 8 {
		userPart = userPart[:8]
	}
	if userPart == "" {
		userPart = "ANON"
	}
	return userPart + "-" + at.UTC().Format("20060102") + "-" + token
}

func randomToken() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}
