package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/npezzotti/go-estate/internal/database"
	"github.com/npezzotti/go-estate/internal/types"
)

func (s *EstateApp) adminUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.db.ListAccounts(r.Context())
	if err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	views := make([]types.Account, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, toAccountView(a))
	}

	s.render(w, r, http.StatusOK, "admin_users.html.tmpl", &viewData{
		Title:    "Users",
		Accounts: views,
	})
}

func (s *EstateApp) adminCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := parseUploadForm(w, r); err != nil {
		s.rejectUploadForm(w, r, err, "/admin/users")
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if msg := validateCredentials(username, password); msg != "" {
		redirect(w, r, "/admin/users", flashError, msg)
		return
	}

	role := types.RoleUser
	if r.PostForm.Get("role") == types.RoleAdmin.String() {
		role = types.RoleAdmin
	}

	pwdHash, err := hashPassword(password)
	if err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	avatar, err := s.saveUpload(r, "avatar")
	if err != nil {
		if errors.Is(err, errDisallowedExtension) {
			redirect(w, r, "/admin/users", flashError, err.Error())
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	_, err = s.db.CreateAccount(r.Context(), database.CreateAccountParams{
		Username:     username,
		PasswordHash: pwdHash,
		Role:         role,
		DisplayName:  strings.TrimSpace(r.PostForm.Get("display_name")),
		Avatar:       avatar,
	})
	if err != nil {
		s.removeUpload(avatar)
		if errors.Is(err, database.ErrUsernameTaken) {
			redirect(w, r, "/admin/users", flashError, "username already exists")
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	redirect(w, r, "/admin/users", flashSuccess, "user "+username+" created")
}

func (s *EstateApp) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	accountId, ok := pathId(r, "id")
	if !ok {
		redirect(w, r, "/admin/users", flashError, "user not found")
		return
	}

	if accountId == session.AccountId {
		redirect(w, r, "/admin/users", flashError, "you cannot delete your own account")
		return
	}

	if err := s.db.DeleteAccount(r.Context(), accountId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			redirect(w, r, "/admin/users", flashError, "user not found")
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	redirect(w, r, "/admin/users", flashSuccess, "user deleted")
}

func (s *EstateApp) adminListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.db.ListListings(r.Context())
	if err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	s.render(w, r, http.StatusOK, "admin_listings.html.tmpl", &viewData{
		Title:    "Listings",
		Listings: toListingViews(listings),
	})
}

func (s *EstateApp) adminDeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, NewBadRequestError())
		return
	}

	listingId, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("listing_id")))
	if err != nil || listingId <= 0 {
		redirect(w, r, "/admin/listings", flashError, "listing not found")
		return
	}

	if err := s.db.DeleteListing(r.Context(), listingId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			redirect(w, r, "/admin/listings", flashError, "listing not found")
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	redirect(w, r, "/admin/listings", flashSuccess, "listing deleted")
}
