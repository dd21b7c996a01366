// Package storage manages the on-disk layout for uploads and burn
// results: one directory per upload, a flat results directory, and a
// thumbnail cache, all resolved through a traversal-safe path helper.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".ts": true, ".mpg": true, ".mpeg": true,
}

var subtitleExtensions = map[string]bool{
	".srt": true, ".vtt": true, ".ass": true, ".ssa": true, ".sub": true,
}

func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

func IsSubtitleFile(name string) bool {
	return subtitleExtensions[strings.ToLower(filepath.Ext(name))]
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._\-]`)

// SanitizeName reduces an uploaded filename to a safe flat name.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload"
	}
	return name
}

// Store lays out uploads/<id>/..., results/ and thumbs/<id>/ under a
// base directory.
type Store struct {
	base string
}

func NewStore(base string) (*Store, error) {
	for _, dir := range []string{base, filepath.Join(base, "uploads"), filepath.Join(base, "results"), filepath.Join(base, "thumbs")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &Store{base: base}, nil
}

// SaveUpload streams an uploaded file into the upload's directory and
// returns its absolute path.
func (s *Store) SaveUpload(uploadID, filename string, r io.Reader) (string, error) {
	dir, err := s.resolve("uploads", uploadID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, SanitizeName(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// UploadPath resolves a previously saved upload file.
func (s *Store) UploadPath(uploadID, filename string) (string, error) {
	dir, err := s.resolve("uploads", uploadID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeName(filename))
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// ListUpload returns the filenames stored for one upload.
func (s *Store) ListUpload(uploadID string) ([]string, error) {
	dir, err := s.resolve("uploads", uploadID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SaveResult writes a finished encode under results/<jobID>.mp4.
func (s *Store) SaveResult(jobID string, data []byte) (string, error) {
	path, err := s.resolve("results", jobID+".mp4")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// ResultPath resolves a finished encode, failing if it does not exist.
func (s *Store) ResultPath(jobID string) (string, error) {
	path, err := s.resolve("results", jobID+".mp4")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// ThumbnailDir is the cache directory for one upload's thumbnail.
func (s *Store) ThumbnailDir(uploadID string) (string, error) {
	return s.resolve("thumbs", uploadID)
}

// DeleteUpload removes an upload's directory, its thumbnail cache and
// nothing else.
func (s *Store) DeleteUpload(uploadID string) error {
	dir, err := s.resolve("uploads", uploadID)
	if err != nil {
		return err
	}
	thumbs, err := s.resolve("thumbs", uploadID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.RemoveAll(thumbs)
}

// resolve joins path parts under the base and rejects anything that
// would escape it.
func (s *Store) resolve(parts ...string) (string, error) {
	full := filepath.Join(append([]string{s.base}, parts...)...)

	absBase, err := filepath.Abs(s.base)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", os.ErrPermission
	}
	return absFull, nil
}
