package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionCookie is the name of the cookie carrying the signed session token.
const sessionCookie = "session"

// sessionLifetime bounds how long a login stays valid. A stateless token
// can't be revoked server-side, so the expiry embedded in the token is the
// only thing that ends an abandoned session.
const sessionLifetime = 24 * time.Hour

// ErrNoSession is returned by Read when the request carries no session
// cookie at all. Callers use it to distinguish "anonymous visitor" from
// "tampered or expired token".
var ErrNoSession = errors.New("auth: no session")

// SessionService binds a client to a user identity via a signed token in an
// HttpOnly cookie.
//
// The token is a JWT (HS256) whose Subject claim holds the user id. The
// server stores nothing: the signature is the whole session mechanism, the
// same way a signed cookie works anywhere else. Validation is a signature
// check plus expiry — no database involved.
//
// SESSION FIXATION:
// Issue always mints a brand-new token rather than mutating an existing one.
// A token an attacker planted before login never becomes authenticated,
// because login replaces the cookie wholesale.
type SessionService struct {
	secret []byte
}

// NewSessionService creates a SessionService with the given signing secret.
// The secret should be at least 32 bytes of random data in production.
func NewSessionService(secret string) (*SessionService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &SessionService{secret: []byte(secret)}, nil
}

// claims is the token payload. The standard Subject claim carries the user
// id; nothing else is stored in the session.
type claims struct {
	jwt.RegisteredClaims
}

// Issue starts a fresh session for userID, replacing whatever session cookie
// the client held before.
//
// COOKIE FLAGS:
//   - HttpOnly: JavaScript can't read the token (XSS containment)
//   - SameSite=Lax: the cookie isn't sent on cross-site POSTs (CSRF containment)
//   - Path=/: valid for the whole site
func (s *SessionService) Issue(w http.ResponseWriter, userID int64) error {
	token, err := s.generate(userID, sessionLifetime)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the user id bound to the request's session.
//
// Returns ErrNoSession when no cookie is present, and a descriptive error
// when the token is expired, tampered with, or otherwise invalid. Either
// way the caller should treat the request as anonymous.
func (s *SessionService) Read(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		// http.ErrNoCookie — an anonymous visitor, not a fault
		return 0, ErrNoSession
	}
	return s.validate(cookie.Value)
}

// Clear ends the session unconditionally by expiring the cookie. Safe to
// call when no session exists.
func (s *SessionService) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// generate creates and signs a session token for the given user id.
func (s *SessionService) generate(userID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    "miniblog",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}

	return signed, nil
}

// validate parses and verifies a token string and returns the user id it
// encodes.
//
// jwt.WithValidMethods pins the algorithm to HS256 — without it, an attacker
// could try an algorithm-confusion attack ("alg":"none" and friends).
func (s *SessionService) validate(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("miniblog"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("auth: session expired")
		}
		return 0, fmt.Errorf("auth: invalid session token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("auth: invalid session claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("auth: session subject is not a user id")
	}

	return userID, nil
}
