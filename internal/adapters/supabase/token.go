package supabase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/okian/locapi/internal/domain/model"
)

// sessionExpiry returns when sess stops being valid. expires_at wins; the
// access token's exp claim is the fallback. Zero means unknown.
func sessionExpiry(sess *model.Session) time.Time {
	if sess.ExpiresAt > 0 {
		return time.Unix(sess.ExpiresAt, 0)
	}
	claims, err := tokenClaims(sess.AccessToken)
	if err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// tokenClaims decodes the access token without verifying it. The token was
// received directly from the auth provider over TLS.
func tokenClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenSubject returns the sub claim of an access token.
func TokenSubject(token string) string {
	claims, err := tokenClaims(token)
	if err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
