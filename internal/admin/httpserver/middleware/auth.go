package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	appsession "finitefield.org/delivery-admin/internal/admin/session"
	"finitefield.org/delivery-admin/internal/platform/observability"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// User is the authenticated staff member. Token is forwarded to the tier
// persistence service.
type User struct {
	UID   string
	Email string
	Roles []string
	Token string
}

// Authenticator resolves an incoming bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError carries the reason code of a failed authentication.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	ReasonMissingToken = "missing_token"
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired is recoverable: the identity provider refreshes the token.
	ReasonTokenExpired = "token_expired"
)

// DefaultAuthenticator accepts any non-empty token as an admin. Local use only.
func DefaultAuthenticator() Authenticator {
	return passthroughAuthenticator{}
}

// Auth resolves the caller from the Authorization header or an identity cookie
// and stores it on the context. Unauthenticated browsers are sent to signInURL
// when one is configured; otherwise they receive 401.
func Auth(authenticator Authenticator, signInURL string) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			token := parseBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				token = cookieToken(r)
			}
			if token == "" {
				logger.Info("auth failure", zap.String("reason", ReasonMissingToken))
				destroySession(r.Context())
				handleUnauthorized(w, r, signInURL, ReasonMissingToken)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason := ReasonTokenInvalid
				var authErr *AuthError
				if errors.As(err, &authErr) && authErr.Reason != "" {
					reason = authErr.Reason
				}
				if err == nil {
					err = ErrUnauthorized
				}
				logger.Info("auth failure", zap.String("reason", reason), zap.Error(err))
				destroySession(r.Context())
				handleUnauthorized(w, r, signInURL, reason)
				return
			}

			if sess, ok := SessionFromContext(r.Context()); ok {
				sess.SetUser(&appsession.User{
					UID:   user.UID,
					Email: user.Email,
					Roles: user.Roles,
				})
			}

			ctx := ContextWithUser(r.Context(), user)
			ctx = observability.WithLogger(ctx, logger.With(
				zap.String("user_id", observability.SanitizeUserID(user.UID)),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithUser returns a copy of ctx carrying user.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

// UserID returns the authenticated user's id for log correlation.
func UserID(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.UID
	}
	return ""
}

// TokenFromContext returns the caller's bearer token, or "".
func TokenFromContext(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.Token
	}
	return ""
}

func parseBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func cookieToken(r *http.Request) string {
	for _, name := range []string{"__session", "idToken"} {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		val := strings.TrimSpace(c.Value)
		if bearer := parseBearerToken(val); bearer != "" {
			return bearer
		}
		if val != "" {
			return val
		}
	}
	return ""
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, signInURL, reason string) {
	if IsHTMXRequest(r.Context()) {
		switch {
		case reason == ReasonTokenExpired || signInURL == "":
			w.Header().Set("HX-Refresh", "true")
		default:
			w.Header().Set("HX-Redirect", signInURL)
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	if signInURL == "" {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	target := signInURL
	if u, err := url.Parse(signInURL); err == nil {
		q := u.Query()
		q.Set("continue", r.URL.RequestURI())
		if reason == ReasonTokenExpired {
			q.Set("reason", "expired")
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func destroySession(ctx context.Context) {
	if sess, ok := SessionFromContext(ctx); ok {
		sess.Destroy()
	}
}

type passthroughAuthenticator struct{}

func (passthroughAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	return &User{UID: token, Roles: []string{"admin"}, Token: token}, nil
}
