// Package images delivers page images from a directory, mapping logical page
// numbers to file names with quran.PageImages.
package images

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/JuniperQuran/core/cache"
	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
)

// Image is one page image read from disk.
type Image struct {
	Page int
	Name string
	Data []byte
}

// Store reads page images and caches their bytes.
type Store struct {
	dir   string
	names quran.PageImages
	cache cache.Cache[int, []byte]
}

// NewStore returns a Store reading from dir.
func NewStore(dir string, names quran.PageImages, cfg cache.Config) *Store {
	return &Store{
		dir:   dir,
		names: names,
		cache: cache.NewLRUCache[int, []byte](cfg),
	}
}

// Dir returns the image directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for page without touching the filesystem.
func (s *Store) Path(page int) string {
	return filepath.Join(s.dir, s.names.Name(page))
}

// Open returns the image for page. A missing or unreadable file is a
// *qerrors.PageImageNotFoundError.
func (s *Store) Open(page int) (Image, error) {
	if page < 0 {
		return Image{}, &qerrors.ValidationError{
			Field:   "page",
			Value:   fmt.Sprint(page),
			Message: "page numbers start at 0",
		}
	}

	path := s.Path(page)
	data, err := cache.Fetch(s.cache, page, func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &qerrors.PageImageNotFoundError{Page: page, Path: path, Err: err}
		}
		return data, nil
	})
	if err != nil {
		return Image{}, err
	}
	return Image{Page: page, Name: s.names.Name(page), Data: data}, nil
}

// OpenAll opens every page in order. Pages that cannot be opened are
// logged and skipped; their errors are joined into the returned error so
// the caller can still deliver the rest.
func (s *Store) OpenAll(pages []int) ([]Image, error) {
	images := make([]Image, 0, len(pages))
	var errs []error
	for _, page := range pages {
		img, err := s.Open(page)
		if err != nil {
			logging.Warn("page_image_missing", "page", page, "error", err)
			errs = append(errs, err)
			continue
		}
		images = append(images, img)
	}
	return images, errors.Join(errs...)
}

// Stats returns cache statistics.
func (s *Store) Stats() cache.Stats {
	return s.cache.Stats()
}
