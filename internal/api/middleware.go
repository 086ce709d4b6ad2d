package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

func (s *EstateApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				http.Error(w, errResp.Message, errResp.StatusCode)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware attaches the session carried by a valid token cookie
// to the request context. Requests without one, or whose account no longer
// exists, pass through anonymously.
func (s *EstateApp) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCookie, err := r.Cookie(tokenCookieKey)
		if err != nil || tokenCookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.sessionFromToken(tokenCookie.Value)
		if err != nil {
			s.log.Printf("failed to extract session from token: %v", err)
			http.SetCookie(w, expiredJwtCookie())
			next.ServeHTTP(w, r)
			return
		}

		account, err := s.db.GetAccountById(r.Context(), session.AccountId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.log.Printf("session for deleted account %d", session.AccountId)
				http.SetCookie(w, expiredJwtCookie())
				next.ServeHTTP(w, r)
				return
			}
			s.renderError(w, r, NewInternalServerError(err))
			return
		}

		// the store is authoritative for the role
		session.Username = account.Username
		session.Role = account.Role

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func (s *EstateApp) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			redirect(w, r, "/", flashError, "please log in")
			return
		}

		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next(w, r)
	}
}

func (s *EstateApp) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFromContext(r.Context())
		if !session.IsAdmin() {
			redirect(w, r, "/rent", flashError, "access denied")
			return
		}

		next(w, r)
	})
}
