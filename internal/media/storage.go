// Package media stores uploaded images (book covers, profile photos) on the
// local filesystem under a single media root.
package media

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Kind is the sub-directory an upload belongs to.
type Kind string

const (
	KindCover        Kind = "covers"
	KindProfilePhoto Kind = "user_profile/photos"
)

var (
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("upload a valid image: the file you uploaded was either not an image or a corrupted image")
	ErrInvalidPath     = errors.New("invalid media path")
)

// Accepted image types and the extension each is stored with.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage writes uploads below root. Stored paths are relative and use
// forward slashes, so they can be persisted and served under /media/.
type Storage struct {
	root    string
	maxSize int64
}

// NewStorage creates the media root if needed. maxSize <= 0 means no limit.
func NewStorage(root string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Storage{root: root, maxSize: maxSize}, nil
}

// Root returns the media root directory.
func (s *Storage) Root() string {
	return s.root
}

// Save stores an image for owner and returns its relative path. The file
// name is derived from the content hash, so re-uploading the same image
// yields the same path.
func (s *Storage) Save(kind Kind, ownerID uint, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(string(kind)))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	br := bufio.NewReader(r)
	head, _ := br.Peek(512)
	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	// Temp file in the target directory so the final rename is atomic
	tmpFile, err := os.CreateTemp(dir, "upload_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	var src io.Reader = br
	if s.maxSize > 0 {
		src = io.LimitReader(br, s.maxSize+1)
	}
	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmpFile, hash), src)
	if err != nil {
		return "", err
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", ErrTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d_%x%s", ownerID, hash.Sum(nil)[:8], ext)
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return "", err
	}

	return path.Join(string(kind), name), nil
}

// Path resolves a stored relative path to a file under the media root.
func (s *Storage) Path(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if rel == "" || clean == "/" || strings.Contains(rel, "\\") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	p, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL is the public URL of a stored file.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + rel
}
