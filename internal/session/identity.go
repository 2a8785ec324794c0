package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/asterion-health/asterion-go/internal/models"
)

// UserFromToken extracts the session identity from an access token without
// verifying the signature; the platform already verified it when issuing
// the token and the SDK only needs the subject for identity comparison.
func UserFromToken(token string) (models.SessionUser, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return models.SessionUser{}, false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.SessionUser{}, false
	}

	user := models.SessionUser{ID: extractUserID(claims)}
	if user.ID == "" {
		return models.SessionUser{}, false
	}

	if name, ok := claims["name"].(string); ok {
		user.DisplayName = name
	} else if name, ok := claims["display_name"].(string); ok {
		user.DisplayName = name
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}

	return user, true
}

// Authenticated reports whether the token carries an unexpired exp claim.
// Tokens without an exp claim count as authenticated; the server is the
// final authority either way.
func Authenticated(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return err == nil
	}
	return expiry.After(now)
}

func extractUserID(claims jwt.MapClaims) models.UserID {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if id := models.NormalizeUserID(value); id != "" {
				return id
			}
		}
	}
	return ""
}
