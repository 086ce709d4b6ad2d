package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teris-io/shortid"
)

const (
	maxUploadSize   = 10 << 20
	uploadURLPrefix = "/uploads/"
)

var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var errDisallowedExtension = errors.New("only png, jpg, jpeg and gif images are allowed")

// uploadFS serves stored files only. Directories are reported as missing so
// the file server never lists them.
type uploadFS struct {
	fs http.FileSystem
}

func (u uploadFS) Open(name string) (http.File, error) {
	f, err := u.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}

	return f, nil
}

func allowedFile(filename string) bool {
	return allowedImageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// sanitizeFilename reduces a client supplied name to a safe base name made
// of ASCII letters, digits, dots, dashes and underscores.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return strings.TrimLeft(b.String(), ".")
}

// parseUploadForm limits the request body and parses it as a multipart
// form, falling back to a urlencoded one.
func parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	err := r.ParseMultipartForm(maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func (s *EstateApp) rejectUploadForm(w http.ResponseWriter, r *http.Request, err error, target string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		redirect(w, r, target, flashError, "uploads are limited to 10 MiB")
		return
	}

	s.log.Printf("parse form: %v", err)
	redirect(w, r, target, flashError, "invalid form submission")
}

func (s *EstateApp) generateFileName(original string) (string, error) {
	id, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("generate file id: %w", err)
	}

	return id + "_" + sanitizeFilename(original), nil
}

// saveUpload stores the file submitted in field and returns the URL it is
// served from. It returns "" when no file was submitted.
func (s *EstateApp) saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	if !allowedFile(header.Filename) {
		return "", errDisallowedExtension
	}

	name, err := s.generateFileName(header.Filename)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.OpenFile(filepath.Join(s.uploadDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}

	return uploadURLPrefix + name, nil
}

func (s *EstateApp) removeUpload(url string) {
	name, ok := strings.CutPrefix(url, uploadURLPrefix)
	if !ok || name == "" {
		return
	}

	if err := os.Remove(filepath.Join(s.uploadDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Printf("remove upload %s: %v", name, err)
	}
}
