package api

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/npezzotti/go-estate/internal/database"
	"github.com/npezzotti/go-estate/internal/search"
	"github.com/npezzotti/go-estate/internal/stats"
	"github.com/npezzotti/go-estate/internal/types"
)

func toListingView(l database.Listing) types.Listing {
	return types.Listing{
		Id:            l.Id,
		Image:         l.Image,
		Price:         l.Price,
		Rooms:         l.Rooms,
		Description:   l.Description,
		Details:       l.Details,
		DealType:      types.DealType(l.DealType),
		HousingType:   types.HousingType(l.HousingType),
		City:          l.City,
		Area:          l.Area,
		Phone:         l.Phone,
		OwnerId:       int(l.OwnerId.Int64),
		OwnerUsername: l.OwnerUsername.String,
	}
}

func toListingViews(listings []database.Listing) []types.Listing {
	views := make([]types.Listing, 0, len(listings))
	for _, l := range listings {
		views = append(views, toListingView(l))
	}
	return views
}

func toAccountView(a database.Account) types.Account {
	return types.Account{
		Id:          a.Id,
		Username:    a.Username,
		Role:        a.Role,
		DisplayName: a.DisplayName,
		Avatar:      a.Avatar,
	}
}

// pathId parses the positive integer path value name.
func pathId(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *EstateApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		http.Error(w, lower(http.StatusText(http.StatusInternalServerError)), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *EstateApp) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, NewNotFoundError())
}

func (s *EstateApp) index(w http.ResponseWriter, r *http.Request) {
	if _, ok := SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/rent", http.StatusSeeOther)
		return
	}

	s.render(w, r, http.StatusOK, "index.html.tmpl", &viewData{Title: "Log in"})
}

func (s *EstateApp) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, NewBadRequestError())
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	account, err := s.db.GetAccountByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	if err != nil || !verifyPassword(account.PasswordHash, password) {
		s.incr(stats.LoginsFailed)
		redirect(w, r, "/", flashError, "invalid username or password")
		return
	}

	session := Session{
		AccountId: account.Id,
		Username:  account.Username,
		Role:      account.Role,
	}
	if err := s.startSession(w, session); err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	http.Redirect(w, r, "/rent", http.StatusSeeOther)
}

func (s *EstateApp) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, NewBadRequestError())
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if msg := validateCredentials(username, password); msg != "" {
		redirect(w, r, "/", flashError, msg)
		return
	}

	pwdHash, err := hashPassword(password)
	if err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	account, err := s.db.CreateAccount(r.Context(), database.CreateAccountParams{
		Username:     username,
		PasswordHash: pwdHash,
		Role:         types.RoleUser,
	})
	if err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			redirect(w, r, "/", flashError, "username already exists")
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}
	s.incr(stats.AccountsRegistered)

	session := Session{
		AccountId: account.Id,
		Username:  account.Username,
		Role:      account.Role,
	}
	if err := s.startSession(w, session); err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	redirect(w, r, "/rent", flashSuccess, "welcome, "+account.Username)
}

func (s *EstateApp) logout(w http.ResponseWriter, r *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, expiredJwtCookie())
	redirect(w, r, "/", flashSuccess, "you have been logged out")
}

func (s *EstateApp) browse(w http.ResponseWriter, r *http.Request) {
	deal, ok := types.ParseDealType(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		s.notFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, NewBadRequestError())
		return
	}

	q := search.Build(deal, search.ParseFilter(r.Form))
	listings, err := s.db.SearchListings(r.Context(), q)
	if err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	title := "For rent"
	if deal == types.DealSale {
		title = "For sale"
	}

	s.render(w, r, http.StatusOK, "listings.html.tmpl", &viewData{
		Title:    title,
		DealType: deal,
		Form:     r.Form,
		Listings: toListingViews(listings),
	})
}

func (s *EstateApp) listingDetail(w http.ResponseWriter, r *http.Request) {
	listingId, ok := pathId(r, "id")
	if !ok {
		redirect(w, r, "/rent", flashError, "listing not found")
		return
	}

	listing, err := s.db.GetListingById(r.Context(), listingId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			redirect(w, r, "/rent", flashError, "listing not found")
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	var isFavorite bool
	if session, ok := SessionFromContext(r.Context()); ok {
		isFavorite, err = s.db.IsFavorite(r.Context(), session.AccountId, listing.Id)
		if err != nil {
			s.renderError(w, r, NewInternalServerError(err))
			return
		}
	}

	view := toListingView(listing)
	s.render(w, r, http.StatusOK, "listing.html.tmpl", &viewData{
		Title:      view.City,
		Listing:    &view,
		IsFavorite: isFavorite,
	})
}

func (s *EstateApp) addListingForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "add.html.tmpl", &viewData{Title: "New listing"})
}

// parseNonNegative parses an optional non-negative integer form value.
func parseNonNegative(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseListingForm validates a submitted listing. On failure it returns the
// message shown to the user.
func parseListingForm(form url.Values) (database.CreateListingParams, string) {
	var params database.CreateListingParams

	deal, ok := types.ParseDealType(form.Get("deal_type"))
	if !ok {
		return params, "choose rent or sale"
	}

	housing, ok := types.ParseHousingType(form.Get("housing_type"))
	if !ok {
		return params, "choose a housing type"
	}

	if strings.TrimSpace(form.Get("price")) == "" {
		return params, "price is required"
	}
	price, ok := parseNonNegative(form.Get("price"))
	if !ok {
		return params, "price must be a non-negative whole number"
	}

	area, ok := parseNonNegative(form.Get("area"))
	if !ok {
		return params, "area must be a non-negative whole number"
	}

	city := strings.TrimSpace(form.Get("city"))
	if city == "" {
		return params, "city is required"
	}

	params = database.CreateListingParams{
		Price:       price,
		Rooms:       types.RoomCount(housing, form.Get("rooms")),
		Description: strings.TrimSpace(form.Get("description")),
		Details:     strings.TrimSpace(form.Get("details")),
		DealType:    deal,
		HousingType: housing,
		City:        city,
		Area:        area,
		Phone:       strings.TrimSpace(form.Get("phone")),
	}
	return params, ""
}

func (s *EstateApp) createListing(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	if err := parseUploadForm(w, r); err != nil {
		s.rejectUploadForm(w, r, err, "/add")
		return
	}

	renderInvalid := func(msg string) {
		s.render(w, r, http.StatusBadRequest, "add.html.tmpl", &viewData{
			Title: "New listing",
			Form:  r.PostForm,
			Flash: &Flash{Kind: flashError, Message: msg},
		})
	}

	params, msg := parseListingForm(r.PostForm)
	if msg != "" {
		renderInvalid(msg)
		return
	}
	params.OwnerId = session.AccountId

	image, err := s.saveUpload(r, "image")
	if err != nil {
		if errors.Is(err, errDisallowedExtension) {
			renderInvalid(err.Error())
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}
	params.Image = image

	listing, err := s.db.CreateListing(r.Context(), params)
	if err != nil {
		s.removeUpload(image)
		s.renderError(w, r, NewInternalServerError(err))
		return
	}
	s.incr(stats.ListingsCreated)

	redirect(w, r, "/listing/"+strconv.Itoa(listing.Id), flashSuccess, "listing published")
}

func (s *EstateApp) favorites(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	listings, err := s.db.ListFavorites(r.Context(), session.AccountId)
	if err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	s.render(w, r, http.StatusOK, "favorites.html.tmpl", &viewData{
		Title:    "Favorites",
		Listings: toListingViews(listings),
	})
}

func (s *EstateApp) addFavorite(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	listingId, ok := pathId(r, "id")
	if !ok {
		redirect(w, r, "/rent", flashError, "listing not found")
		return
	}

	if _, err := s.db.GetListingById(r.Context(), listingId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			redirect(w, r, "/rent", flashError, "listing not found")
			return
		}
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	if err := s.db.AddFavorite(r.Context(), session.AccountId, listingId); err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}
	s.incr(stats.FavoritesAdded)

	next := localPath(r.FormValue("next"), "/listing/"+strconv.Itoa(listingId))
	redirect(w, r, next, flashSuccess, "added to favorites")
}

func (s *EstateApp) removeFavorite(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	listingId, ok := pathId(r, "id")
	if !ok {
		redirect(w, r, "/favorites", flashError, "listing not found")
		return
	}

	if err := s.db.RemoveFavorite(r.Context(), session.AccountId, listingId); err != nil {
		s.renderError(w, r, NewInternalServerError(err))
		return
	}

	next := localPath(r.FormValue("next"), "/listing/"+strconv.Itoa(listingId))
	redirect(w, r, next, flashSuccess, "removed from favorites")
}
