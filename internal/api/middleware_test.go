package api

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npezzotti/go-estate/internal/database"
	"github.com/npezzotti/go-estate/internal/testutil"
	"github.com/npezzotti/go-estate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_PanicRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	app := &EstateApp{
		log: testutil.TestLogger(t),
	}

	app.log.SetOutput(buf)

	// handler that panics
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("test panic"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler := app.errorHandler(panicHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
	assert.Contains(t, buf.String(), "panic: test panic")
	assert.NotContains(t, rr.Body.String(), "test panic")
}

func Test_errorHandler_NoPanic(t *testing.T) {
	app := &EstateApp{}

	// simple handler that does not panic
	called := false
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler := app.errorHandler(okHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.True(t, called, "expected handler to be called")
}

func Test_sessionMiddleware(t *testing.T) {
	mockRepo := &database.MockEstateRepository{}
	deleted := Session{AccountId: 40, Username: "gone", Role: types.RoleAdmin}
	broken := Session{AccountId: 41, Username: "broken", Role: types.RoleUser}
	mockRepo.On("GetAccountById", mock.Anything, deleted.AccountId).Return(database.Account{}, sql.ErrNoRows)
	mockRepo.On("GetAccountById", mock.Anything, broken.AccountId).Return(database.Account{}, errors.New("db error"))
	app := newTestApp(t, mockRepo, nil)

	var (
		gotSession Session
		gotOk      bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession, gotOk = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := app.sessionMiddleware(next)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(sessionCookie(t, app, adminSession))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, gotOk, "expected session on context")
		assert.Equal(t, adminSession, gotSession)
	})

	t.Run("missing token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, gotOk, "expected anonymous request")
	})

	t.Run("invalid token is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie("not-a-token", defaultJwtExpiration))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, gotOk, "expected anonymous request")
		c := findCookie(rr, tokenCookieKey)
		require.NotNil(t, c, "expected token cookie to be cleared")
		assert.Less(t, c.MaxAge, 0)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(userSession, -defaultJwtExpiration)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie(token, defaultJwtExpiration))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.False(t, gotOk, "expected expired token to be ignored")
	})

	t.Run("deleted account is cleared", func(t *testing.T) {
		gotOk = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(sessionCookie(t, app, deleted))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, gotOk, "expected anonymous request")
		c := findCookie(rr, tokenCookieKey)
		require.NotNil(t, c, "expected token cookie to be cleared")
		assert.Less(t, c.MaxAge, 0)
	})

	t.Run("store failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(sessionCookie(t, app, broken))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "db error")
	})
}

func Test_requireAuth(t *testing.T) {
	app := newTestApp(t, &database.MockEstateRepository{}, nil)

	protected := app.sessionMiddleware(app.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	t.Run("anonymous request is redirected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/add", nil))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		assert.Equal(t, Flash{Kind: flashError, Message: "please log in"}, flashFrom(t, rr))
	})

	t.Run("logged in request passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/add", nil)
		req.AddCookie(sessionCookie(t, app, userSession))
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
		assert.Equal(t, "no-store, no-cache, must-revalidate, private", rr.Header().Get("Cache-Control"))
	})
}

func Test_requireAdmin(t *testing.T) {
	mockRepo := &database.MockEstateRepository{}
	demoted := Session{AccountId: 9, Username: "former", Role: types.RoleAdmin}
	mockRepo.On("GetAccountById", mock.Anything, demoted.AccountId).Return(database.Account{
		Id:       demoted.AccountId,
		Username: demoted.Username,
		Role:     types.RoleUser,
	}, nil)
	app := newTestApp(t, mockRepo, nil)

	protected := app.sessionMiddleware(app.requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tcases := []struct {
		name      string
		session   *Session
		wantCode  int
		wantLoc   string
		wantFlash string
	}{
		{
			name:      "anonymous",
			wantCode:  http.StatusSeeOther,
			wantLoc:   "/",
			wantFlash: "please log in",
		},
		{
			name:      "regular user",
			session:   &userSession,
			wantCode:  http.StatusSeeOther,
			wantLoc:   "/rent",
			wantFlash: "access denied",
		},
		{
			name:      "token role is not trusted over the store",
			session:   &demoted,
			wantCode:  http.StatusSeeOther,
			wantLoc:   "/rent",
			wantFlash: "access denied",
		},
		{
			name:     "admin",
			session:  &adminSession,
			wantCode: http.StatusOK,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tc.session != nil {
				req.AddCookie(sessionCookie(t, app, *tc.session))
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantCode, rr.Code)
			if tc.wantLoc != "" {
				assert.Equal(t, tc.wantLoc, rr.Header().Get("Location"))
				assert.Equal(t, tc.wantFlash, flashFrom(t, rr).Message)
			}
		})
	}
}
