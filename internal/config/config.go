package config

import (
	"encoding/base64"
	"fmt"
	"os"
)

type Config struct {
	ServerAddr     string
	DatabaseDriver string
	DatabaseDSN    string
	SigningKey     []byte
	UploadDir      string
	AdminUsername  string
	AdminPassword  string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty signing key")
	}
	return key, nil
}

func NewConfig(serverAddr, databaseDriver, databaseDSN, base64Secret, uploadDir string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDriver != "postgres" && databaseDriver != "sqlite" {
		return nil, fmt.Errorf("database driver must be postgres or sqlite, got %q", databaseDriver)
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if uploadDir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDriver: databaseDriver,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		UploadDir:      uploadDir,
	}, nil
}

// Getenv returns the value of the environment variable key, or def when
// the variable is unset.
func Getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
