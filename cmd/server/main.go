package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/go-estate/internal/api"
	"github.com/npezzotti/go-estate/internal/config"
	"github.com/npezzotti/go-estate/internal/database"
	"github.com/npezzotti/go-estate/internal/stats"
	"golang.org/x/crypto/bcrypt"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

var (
	addr          string
	dbDriver      string
	dsn           string
	signingKey    string
	uploadDir     string
	adminUser     string
	adminPassword string
)

func main() {
	logger := log.New(os.Stderr, "[estate] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal("load .env:", err)
	}

	flag.StringVar(&addr, "addr", config.Getenv("ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dbDriver, "db-driver", config.Getenv("DATABASE_DRIVER", database.DriverSQLite), "database driver (sqlite or postgres)")
	flag.StringVar(&dsn, "dsn", config.Getenv("DATABASE_DSN", "estate.db"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", config.Getenv("SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.StringVar(&uploadDir, "upload-dir", config.Getenv("UPLOAD_DIR", "static/uploads"), "directory for uploaded images")
	flag.StringVar(&adminUser, "admin-user", config.Getenv("ADMIN_USERNAME", ""), "username of the administrator created at startup")
	flag.StringVar(&adminPassword, "admin-password", config.Getenv("ADMIN_PASSWORD", ""), "password of the administrator created at startup")
	flag.Parse()

	cfg, err := config.NewConfig(addr, dbDriver, dsn, signingKey, uploadDir)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.AdminUsername = adminUser
	cfg.AdminPassword = adminPassword

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Fatal("upload dir:", err)
	}

	repo, err := database.NewSQLRepository(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := ensureAdmin(logger, repo, cfg); err != nil {
		logger.Fatal("admin bootstrap:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	srv, err := api.NewEstateApp(mux, logger, repo, statsUpdater, cfg)
	if err != nil {
		logger.Fatal("new app:", err)
	}

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

// ensureAdmin creates the configured administrator account if it does not
// exist yet.
func ensureAdmin(logger *log.Logger, repo database.EstateRepository, cfg *config.Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := repo.EnsureAdmin(ctx, cfg.AdminUsername, string(hash))
	if err != nil {
		return err
	}

	if created {
		logger.Printf("created administrator %q\n", cfg.AdminUsername)
	}
	return nil
}
