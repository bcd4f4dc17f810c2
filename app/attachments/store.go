package attachments

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrExtensionNotAllowed is returned for files outside the allowed set.
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	// ErrInvalidName is returned when nothing is left of a name after sanitizing.
	ErrInvalidName = errors.New("invalid file name")
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"pdf":  true,
}

// Store writes uploaded files into a directory and hands back references
// of the form <prefix>/<name>. Files with the same sanitized name overwrite
// each other.
type Store struct {
	dir    string
	prefix string
}

// Skip describes an upload that was not stored.
type Skip struct {
	Name   string
	Reason string
}

func NewStore(dir, prefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, prefix: strings.TrimSuffix(prefix, "/")}, nil
}

// Dir is the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Allowed reports whether name carries one of the accepted extensions.
func Allowed(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(name[i+1:])]
}

// Save stores the content of r under the sanitized form of originalName.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	if !Allowed(originalName) {
		return "", ErrExtensionNotAllowed
	}
	name := SanitizeName(originalName)
	if name == "" || !Allowed(name) {
		return "", ErrInvalidName
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	if s.prefix == "" {
		return name, nil
	}
	return path.Join(s.prefix, name), nil
}

// SaveAll stores every upload it can. Rejected or failed files are logged
// and reported as skips; they never stop the remaining files.
func (s *Store) SaveAll(files []*multipart.FileHeader) ([]string, []Skip) {
	refs := make([]string, 0, len(files))
	var skipped []Skip
	for _, fh := range files {
		if fh == nil || fh.Filename == "" {
			continue
		}
		ref, err := s.saveHeader(fh)
		if err != nil {
			log.Printf("[attachments] skipped %q: %v", fh.Filename, err)
			skipped = append(skipped, Skip{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		log.Printf("[attachments] saved %s", ref)
		refs = append(refs, ref)
	}
	return refs, skipped
}

func (s *Store) saveHeader(fh *multipart.FileHeader) (string, error) {
	if !Allowed(fh.Filename) {
		return "", ErrExtensionNotAllowed
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(f, fh.Filename)
}

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeName reduces a client supplied file name to a safe base name.
// Path separators become spaces, whitespace runs become underscores, any
// other character outside [A-Za-z0-9._-] is dropped, and leading or trailing
// dots and underscores are trimmed.
func SanitizeName(name string) string {
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
