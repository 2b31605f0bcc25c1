package middleware

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrTokenExpired marks an ID token past its expiry.
var ErrTokenExpired = errors.New("firebase token expired")

// FirebaseTokenVerifier is the part of the Firebase Admin auth client used here.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator turns Firebase ID tokens issued to operations staff
// into Users. Roles come from the "role" and "roles" custom claims.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator panics when verifier is nil.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate verifies token and maps its claims.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	email, _ := verified.Claims["email"].(string)
	return &User{
		UID:   verified.UID,
		Email: strings.TrimSpace(email),
		Roles: roleClaims(verified.Claims),
		Token: token,
	}, nil
}

// roleClaims accepts "role" as a string and "roles" as a string, a list, or
// a map of role name to bool. Order follows the claims; map keys are sorted.
func roleClaims(claims map[string]any) []string {
	var roles []string
	seen := make(map[string]bool)
	add := func(v any) {
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" || seen[s] {
			return
		}
		seen[s] = true
		roles = append(roles, s)
	}

	add(claims["role"])
	switch v := claims["roles"].(type) {
	case string:
		add(v)
	case []string:
		for _, item := range v {
			add(item)
		}
	case []any:
		for _, item := range v {
			add(item)
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key, granted := range v {
			if b, ok := granted.(bool); ok && b {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			add(key)
		}
	}
	return roles
}
