// Package filestorage stores uploaded attachment bodies on local disk.
package filestorage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored files are served.
const URLPrefix = "/uploads/"

var unsafeExt = regexp.MustCompile(`[^a-zA-Z0-9.]`)

type LocalFileStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalFileStorage{basePath: basePath, now: time.Now}, nil
}

// Save writes r under <base>/<prefix>/YYYY/MM/DD/ with a uuid file name
// that keeps only the original extension, and returns the public
// reference ("/uploads/...").
func (s *LocalFileStorage) Save(r io.Reader, originalName, prefix string) (string, error) {
	now := s.now()
	ext := strings.ToLower(unsafeExt.ReplaceAllString(filepath.Ext(originalName), ""))
	if len(ext) > 10 {
		ext = ""
	}
	name := fmt.Sprintf("%s-%s%s", now.Format("2006-01-02"), uuid.New().String(), ext)

	rel := filepath.Join(cleanPrefix(prefix), now.Format("2006/01/02"))
	dir := filepath.Join(s.basePath, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return URLPrefix + filepath.ToSlash(filepath.Join(rel, name)), nil
}

// Delete removes a file previously returned by Save. Missing files are not
// an error.
func (s *LocalFileStorage) Delete(ref string) error {
	rel := strings.TrimPrefix(ref, URLPrefix)
	if rel == ref || strings.Contains(rel, "..") {
		return fmt.Errorf("not a stored file reference: %q", ref)
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// BasePath is the directory served under URLPrefix.
func (s *LocalFileStorage) BasePath() string { return s.basePath }

func cleanPrefix(p string) string {
	p = strings.Trim(filepath.Clean("/"+p), "/")
	if p == "" || p == "." {
		return "misc"
	}
	return p
}
