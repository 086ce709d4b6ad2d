package api

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/npezzotti/go-estate/internal/types"
)

//go:embed templates
var templateFS embed.FS

const (
	flashCookieKey = "flash"

	flashSuccess = "success"
	flashError   = "error"
)

type Flash struct {
	Kind    string
	Message string
}

// viewData is the value every page template is executed with.
type viewData struct {
	Title        string
	Session      *Session
	Flash        *Flash
	DealType     types.DealType
	Form         url.Values
	HousingTypes []types.HousingType
	Listings     []types.Listing
	Listing      *types.Listing
	IsFavorite   bool
	Accounts     []types.Account
	Error        *AppError
}

var housingLabels = map[types.HousingType]string{
	types.HousingHouse:     "house",
	types.HousingApartment: "apartment",
	types.HousingRoom:      "room",
}

var templateFuncs = template.FuncMap{
	"housingLabel": func(h types.HousingType) string {
		if label, ok := housingLabels[h]; ok {
			return label
		}
		return string(h)
	},
	"isRoom": func(h types.HousingType) bool {
		return h == types.HousingRoom
	},
}

func NewTemplateCache() (map[string]*template.Template, error) {
	tmplCache := make(map[string]*template.Template)

	pages, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := path.Base(page)
		patterns := []string{
			"templates/base.html.tmpl",
			page,
		}

		ts, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		tmplCache[name] = ts
	}

	return tmplCache, nil
}

func (s *EstateApp) render(w http.ResponseWriter, r *http.Request, status int, tmplName string, data *viewData) {
	tmpl, ok := s.templates[tmplName]
	if !ok {
		s.log.Printf("template %q not in cache", tmplName)
		http.Error(w, lower(http.StatusText(http.StatusInternalServerError)), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &viewData{}
	}
	if session, ok := SessionFromContext(r.Context()); ok {
		data.Session = &session
	}
	if flash := popFlash(w, r); data.Flash == nil {
		data.Flash = flash
	}
	if data.HousingTypes == nil {
		data.HousingTypes = types.HousingTypes
	}

	buf := &bytes.Buffer{}
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		s.log.Printf("render %s: %v", tmplName, err)
		http.Error(w, lower(http.StatusText(http.StatusInternalServerError)), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *EstateApp) renderError(w http.ResponseWriter, r *http.Request, appErr *AppError) {
	if appErr.Err != nil {
		s.log.Printf("%s %s: %v", r.Method, r.URL.Path, appErr)
	}

	s.render(w, r, appErr.StatusCode, "error.html.tmpl", &viewData{
		Title: appErr.Message,
		Error: appErr,
	})
}

func encodeFlash(f Flash) string {
	return base64.RawURLEncoding.EncodeToString([]byte(f.Kind + "|" + f.Message))
}

func decodeFlash(value string) (Flash, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Flash{}, false
	}

	kind, msg, ok := strings.Cut(string(raw), "|")
	if !ok || msg == "" {
		return Flash{}, false
	}

	return Flash{Kind: kind, Message: msg}, true
}

func setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieKey,
		Value:    encodeFlash(Flash{Kind: kind, Message: msg}),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieKey)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieKey,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	f, ok := decodeFlash(c.Value)
	if !ok {
		return nil
	}
	return &f
}

// redirect sets a flash message and sends the client to target.
func redirect(w http.ResponseWriter, r *http.Request, target, kind, msg string) {
	if msg != "" {
		setFlash(w, kind, msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// localPath returns p when it is a path on this site, or def otherwise.
func localPath(p, def string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return def
	}
	return p
}
