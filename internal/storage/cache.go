package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// Cache provides thread-safe caching of loaded entities to avoid redundant
// disk reads and decodes.
//
// The cache stores decoded entities keyed by their file path. Once a file
// is loaded, subsequent Load calls for the same path return the cached
// entity without disk I/O. Entities are immutable, so the same value can be
// returned to every caller.
//
// # Memory Management
//
// Cached entities remain in memory until explicitly removed via Evict or
// Clear. Callers that overwrite a file on disk should Evict its path.
//
// # Example Usage
//
//	cache := storage.NewCache(store)
//	img, err := cache.Load("/path/to/cat.jpg")
//	if err != nil {
//	    return err
//	}
//	edges, err := detection.DetectEdges(img)
type Cache struct {
	store *Store

	mu     sync.RWMutex
	images map[string]*imaging.Image
}

// NewCache creates an empty cache that loads through store.
func NewCache(store *Store) *Cache {
	return &Cache{
		store:  store,
		images: make(map[string]*imaging.Image),
	}
}

// Load retrieves an entity from the cache or decodes it from disk.
//
// The entity is cached using the exact path string provided. Different
// paths to the same file (relative vs absolute) result in separate entries.
//
// # Errors
//
//   - ErrUnsupportedExtension if the file is not .jpg, .jpeg or .png
//   - an error if the file does not exist or cannot be decoded
func (c *Cache) Load(path string) (*imaging.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := c.store.Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached entities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all entities from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*imaging.Image)
	c.mu.Unlock()
}

// Evict removes a specific entity from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// FileInfo describes an image file on disk.
type FileInfo struct {
	// Path is the file that was described.
	Path string `json:"path"`

	// Name is the file stem, used as the base name for derived images.
	Name string `json:"name"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Kind is "grayscale" or "color".
	Kind string `json:"kind"`

	// Format is "jpeg" or "png", determined by file extension.
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Describe loads path through the cache and returns its metadata.
func Describe(cache *Cache, path string) (*FileInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		format = "png"
	}

	return &FileInfo{
		Path:          path,
		Name:          img.Name(),
		Width:         img.Cols(),
		Height:        img.Rows(),
		Kind:          img.Kind().String(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
