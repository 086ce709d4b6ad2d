package api

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-estate/internal/config"
	"github.com/npezzotti/go-estate/internal/database"
	"github.com/npezzotti/go-estate/internal/stats"
)

type EstateApp struct {
	log        *log.Logger
	db         database.EstateRepository
	stats      stats.StatsProvider
	templates  map[string]*template.Template
	srv        *http.Server
	signingKey []byte
	uploadDir  string
}

func NewEstateApp(mux *http.ServeMux, logger *log.Logger, db database.EstateRepository, statsProvider stats.StatsProvider, cfg *config.Config) (*EstateApp, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	tc, err := NewTemplateCache()
	if err != nil {
		return nil, fmt.Errorf("template cache: %w", err)
	}

	s := &EstateApp{
		log:        logger,
		db:         db,
		stats:      statsProvider,
		templates:  tc,
		signingKey: cfg.SigningKey,
		uploadDir:  cfg.UploadDir,
	}

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("GET /logout", s.logout)
	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("GET /rent", s.browse)
	mux.HandleFunc("POST /rent", s.browse)
	mux.HandleFunc("GET /sale", s.browse)
	mux.HandleFunc("POST /sale", s.browse)
	mux.HandleFunc("GET /listing/{id}", s.listingDetail)
	mux.HandleFunc("GET /add", s.requireAuth(s.addListingForm))
	mux.HandleFunc("POST /add", s.requireAuth(s.createListing))

	mux.HandleFunc("GET /favorites", s.requireAuth(s.favorites))
	mux.HandleFunc("POST /add_favorite/{id}", s.requireAuth(s.addFavorite))
	mux.HandleFunc("POST /remove_favorite/{id}", s.requireAuth(s.removeFavorite))

	mux.HandleFunc("GET /admin/users", s.requireAdmin(s.adminUsers))
	mux.HandleFunc("POST /admin/users/create", s.requireAdmin(s.adminCreateUser))
	mux.HandleFunc("POST /admin/users/delete/{id}", s.requireAdmin(s.adminDeleteUser))
	mux.HandleFunc("GET /admin/listings", s.requireAdmin(s.adminListings))
	mux.HandleFunc("POST /admin/listings/delete", s.requireAdmin(s.adminDeleteListing))

	mux.HandleFunc("/", s.notFound)

	if s.uploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(uploadFS{http.Dir(s.uploadDir)})))
	}

	var h http.Handler = s.sessionMiddleware(mux)
	h = handlers.CombinedLoggingHandler(logger.Writer(), h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s, nil
}

// Handler returns the fully decorated root handler.
func (s *EstateApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *EstateApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *EstateApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *EstateApp) incr(name string) {
	if s.stats != nil {
		s.stats.Incr(name)
	}
}
