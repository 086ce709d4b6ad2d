package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/npezzotti/go-estate/internal/config"
	"github.com/npezzotti/go-estate/internal/database"
	"github.com/npezzotti/go-estate/internal/testutil"
	"github.com/npezzotti/go-estate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type e2eEnv struct {
	app       *EstateApp
	repo      *database.SQLRepository
	uploadDir string
}

func newE2EEnv(t *testing.T) *e2eEnv {
	t.Helper()

	repo := testutil.NewTestRepository(t)
	uploadDir := t.TempDir()
	app, err := NewEstateApp(
		http.NewServeMux(),
		testutil.TestLogger(t),
		repo,
		nil,
		&config.Config{
			SigningKey: []byte("e2e-signing-key"),
			UploadDir:  uploadDir,
		},
	)
	require.NoError(t, err)

	return &e2eEnv{app: app, repo: repo, uploadDir: uploadDir}
}

// login registers or logs in and returns the session cookie.
func (e *e2eEnv) login(t *testing.T, target, username, password string) *http.Cookie {
	t.Helper()

	rr := serve(e.app, postForm(target, url.Values{
		"username": {username},
		"password": {password},
	}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/rent", rr.Header().Get("Location"))

	c := findCookie(rr, tokenCookieKey)
	require.NotNil(t, c, "expected session cookie")
	return c
}

func TestE2E_ListingLifecycle(t *testing.T) {
	env := newE2EEnv(t)
	ctx := context.Background()

	alice := env.login(t, "/register", "alice", "secret1")

	// a room posted without a room count is stored with one room
	rr := serve(env.app, multipartRequest(t, "/add", map[string]string{
		"deal_type":    "rent",
		"housing_type": "комната",
		"price":        "9000",
		"area":         "14",
		"city":         "Astana",
		"description":  "room near the university",
	}, "image", "room.jpg", []byte("jpeg-bytes")), alice)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/listing/"))

	listings, err := env.repo.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	room := listings[0]
	assert.Equal(t, 1, room.Rooms)
	assert.Equal(t, string(types.HousingRoom), room.HousingType)
	assert.Equal(t, "alice", room.OwnerUsername.String)
	require.NotEmpty(t, room.Image)
	_, err = os.Stat(filepath.Join(env.uploadDir, strings.TrimPrefix(room.Image, uploadURLPrefix)))
	assert.NoError(t, err, "expected uploaded image on disk")

	imageResp := serve(env.app, httptest.NewRequest(http.MethodGet, room.Image, nil))
	assert.Equal(t, http.StatusOK, imageResp.Code)
	assert.Equal(t, "jpeg-bytes", imageResp.Body.String())

	rr = serve(env.app, multipartRequest(t, "/add", map[string]string{
		"deal_type":    "sale",
		"housing_type": "квартира",
		"price":        "120000",
		"rooms":        "3",
		"city":         "Almaty",
	}, "", "", nil), alice)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	// a disallowed upload creates nothing
	rr = serve(env.app, multipartRequest(t, "/add", map[string]string{
		"deal_type":    "sale",
		"housing_type": "дом",
		"price":        "300000",
		"city":         "Almaty",
	}, "image", "house.exe", []byte("MZ")), alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), errDisallowedExtension.Error())

	listings, err = env.repo.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	flat := listings[1]

	roomPath := "/listing/" + strconv.Itoa(room.Id)
	flatPath := "/listing/" + strconv.Itoa(flat.Id)

	t.Run("browse by deal type", func(t *testing.T) {
		rr := serve(env.app, httptest.NewRequest(http.MethodGet, "/rent", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), roomPath)
		assert.NotContains(t, rr.Body.String(), flatPath)

		rr = serve(env.app, httptest.NewRequest(http.MethodGet, "/sale", nil))
		assert.Contains(t, rr.Body.String(), flatPath)
		assert.NotContains(t, rr.Body.String(), roomPath)
	})

	t.Run("browse with city filter", func(t *testing.T) {
		rr := serve(env.app, postForm("/rent", url.Values{"city": {"Almaty"}}))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), roomPath)
		assert.Contains(t, rr.Body.String(), "No listings found.")

		rr = serve(env.app, postForm("/rent", url.Values{"city": {"Astana"}, "rooms": {"5"}, "housing_type": {"комната"}}))
		assert.Contains(t, rr.Body.String(), roomPath, "expected rooms filter to be ignored for rooms")
	})

	t.Run("favorites", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rr := serve(env.app, postForm("/add_favorite/"+strconv.Itoa(flat.Id), nil), alice)
			require.Equal(t, http.StatusSeeOther, rr.Code)
		}

		aliceAccount, err := env.repo.GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		favorites, err := env.repo.ListFavorites(ctx, aliceAccount.Id)
		require.NoError(t, err)
		assert.Len(t, favorites, 1, "expected adding twice to keep one favorite")

		rr := serve(env.app, httptest.NewRequest(http.MethodGet, "/favorites", nil), alice)
		assert.Contains(t, rr.Body.String(), flatPath)

		for i := 0; i < 2; i++ {
			rr := serve(env.app, postForm("/remove_favorite/"+strconv.Itoa(flat.Id), url.Values{"next": {"/favorites"}}), alice)
			require.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, "/favorites", rr.Header().Get("Location"))
		}

		favorites, err = env.repo.ListFavorites(ctx, aliceAccount.Id)
		require.NoError(t, err)
		assert.Empty(t, favorites)
	})

	t.Run("admin removes an account and a listing", func(t *testing.T) {
		hash, err := hashPassword("rootpass")
		require.NoError(t, err)
		_, err = env.repo.EnsureAdmin(ctx, "root", hash)
		require.NoError(t, err)

		root := env.login(t, "/login", "root", "rootpass")

		rr := serve(env.app, httptest.NewRequest(http.MethodGet, "/admin/users", nil), alice)
		assert.Equal(t, "/rent", rr.Header().Get("Location"), "expected regular user to be denied")

		aliceAccount, err := env.repo.GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)

		rr = serve(env.app, postForm("/admin/users/delete/"+strconv.Itoa(aliceAccount.Id), nil), root)
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "user deleted", flashFrom(t, rr).Message)

		remaining, err := env.repo.GetListingById(ctx, room.Id)
		require.NoError(t, err, "expected listing to outlive its owner")
		assert.False(t, remaining.OwnerId.Valid)

		rr = serve(env.app, postForm("/admin/listings/delete", url.Values{"listing_id": {strconv.Itoa(room.Id)}}), root)
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "listing deleted", flashFrom(t, rr).Message)

		rr = serve(env.app, httptest.NewRequest(http.MethodGet, roomPath, nil))
		assert.Equal(t, "/rent", rr.Header().Get("Location"))
		assert.Equal(t, "listing not found", flashFrom(t, rr).Message)
	})
}

func TestE2E_Authentication(t *testing.T) {
	env := newE2EEnv(t)

	env.login(t, "/register", "bob", "secret1")

	rr := serve(env.app, postForm("/register", url.Values{
		"username": {"bob"},
		"password": {"another1"},
	}))
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, "username already exists", flashFrom(t, rr).Message)

	rr = serve(env.app, postForm("/login", url.Values{
		"username": {"bob"},
		"password": {"wrong-pass"},
	}))
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, "invalid username or password", flashFrom(t, rr).Message)
	assert.Nil(t, findCookie(rr, tokenCookieKey))

	rr = serve(env.app, postForm("/login", url.Values{
		"username": {"nobody"},
		"password": {"secret1"},
	}))
	assert.Equal(t, "invalid username or password", flashFrom(t, rr).Message)

	bob := env.login(t, "/login", "bob", "secret1")
	rr = serve(env.app, httptest.NewRequest(http.MethodGet, "/add", nil), bob)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(env.app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestE2E_DeletedAccountSession(t *testing.T) {
	env := newE2EEnv(t)
	ctx := context.Background()

	for _, username := range []string{"root", "root2"} {
		hash, err := hashPassword("rootpass")
		require.NoError(t, err)
		_, err = env.repo.EnsureAdmin(ctx, username, hash)
		require.NoError(t, err)
	}

	root := env.login(t, "/login", "root", "rootpass")
	root2 := env.login(t, "/login", "root2", "rootpass")
	carol := env.login(t, "/register", "carol", "secret1")

	for _, username := range []string{"root2", "carol"} {
		account, err := env.repo.GetAccountByUsername(ctx, username)
		require.NoError(t, err)
		rr := serve(env.app, postForm("/admin/users/delete/"+strconv.Itoa(account.Id), nil), root)
		require.Equal(t, "user deleted", flashFrom(t, rr).Message)
	}

	rr := serve(env.app, multipartRequest(t, "/add", map[string]string{
		"deal_type":    "rent",
		"housing_type": "квартира",
		"price":        "50000",
		"city":         "Almaty",
	}, "", "", nil), carol)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, "please log in", flashFrom(t, rr).Message)
	c := findCookie(rr, tokenCookieKey)
	require.NotNil(t, c, "expected stale session cookie to be cleared")
	assert.Less(t, c.MaxAge, 0)

	listings, err := env.repo.ListListings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)

	rr = serve(env.app, httptest.NewRequest(http.MethodGet, "/admin/users", nil), root2)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, "please log in", flashFrom(t, rr).Message)

	rootAccount, err := env.repo.GetAccountByUsername(ctx, "root")
	require.NoError(t, err)
	rr = serve(env.app, postForm("/admin/users/delete/"+strconv.Itoa(rootAccount.Id), nil), root2)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	_, err = env.repo.GetAccountById(ctx, rootAccount.Id)
	assert.NoError(t, err, "expected remaining admin to survive")
}
