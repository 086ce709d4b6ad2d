package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/go-estate/internal/types"
	"golang.org/x/crypto/bcrypt"
)

var (
	defaultJwtExpiration = time.Hour * 24
	tokenCookieKey       = "token"
)

const (
	userIdClaim   = "user-id"
	usernameClaim = "username"
	roleClaim     = "role"
	expClaim      = "exp"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
	maxPasswordLen = 64
	// bcrypt rejects longer inputs
	maxPasswordBytes = 72
)

// Session identifies the account behind a request.
type Session struct {
	AccountId int
	Username  string
	Role      types.Role
}

func (s Session) IsAdmin() bool {
	return s.Role.IsAdmin()
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	return session, ok
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// expiredJwtCookie instructs the browser to drop the session cookie.
func expiredJwtCookie() *http.Cookie {
	c := createJwtCookie("", 0)
	c.Expires = time.Unix(0, 0)
	c.MaxAge = -1
	return c
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *EstateApp) createJwtForSession(session Session, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:   session.AccountId,
		usernameClaim: session.Username,
		roleClaim:     int(session.Role),
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *EstateApp) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

func (s *EstateApp) sessionFromToken(tokenString string) (Session, error) {
	token, err := s.verifyToken(tokenString)
	if err != nil {
		return Session{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return Session{}, fmt.Errorf("invalid user id claim")
	}

	username, ok := claims[usernameClaim].(string)
	if !ok {
		return Session{}, fmt.Errorf("invalid username claim")
	}

	role, ok := claims[roleClaim].(float64)
	if !ok {
		return Session{}, fmt.Errorf("invalid role claim")
	}

	return Session{
		AccountId: int(userId),
		Username:  username,
		Role:      types.Role(role),
	}, nil
}

// startSession issues a signed session cookie for the account.
func (s *EstateApp) startSession(w http.ResponseWriter, session Session) error {
	token, err := s.createJwtForSession(session, defaultJwtExpiration)
	if err != nil {
		return err
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))
	return nil
}

func hasSpace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// validateCredentials returns the message shown to the user, or "" when the
// credentials are acceptable.
func validateCredentials(username, password string) string {
	switch n := utf8.RuneCountInString(username); {
	case n < minUsernameLen || n > maxUsernameLen:
		return fmt.Sprintf("username must be %d to %d characters", minUsernameLen, maxUsernameLen)
	case hasSpace(username):
		return "username must not contain spaces"
	}

	switch n := utf8.RuneCountInString(password); {
	case n < minPasswordLen || n > maxPasswordLen:
		return fmt.Sprintf("password must be %d to %d characters", minPasswordLen, maxPasswordLen)
	case len(password) > maxPasswordBytes:
		return "password is too long"
	case hasSpace(password):
		return "password must not contain spaces"
	}

	return ""
}
