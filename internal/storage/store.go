package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	imgio "github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// ErrUnsupportedExtension is returned for images whose extension has no encoder.
var ErrUnsupportedExtension = errors.New("unsupported image extension")

// Extensions lists the file extensions the store can write and read.
var Extensions = []string{".jpg", ".jpeg", ".png"}

// DefaultJPEGQuality is the encoder quality used unless WithJPEGQuality is given.
const DefaultJPEGQuality = 95

// Supported reports whether ext (with the leading dot, any case) can be persisted.
func Supported(ext string) bool {
	return slices.Contains(Extensions, strings.ToLower(ext))
}

// Store writes image entities below a root directory.
type Store struct {
	root    string
	quality int
	logger  *logrus.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithJPEGQuality sets the JPEG quality in [1, 100]. Out of range values are ignored.
func WithJPEGQuality(q int) Option {
	return func(s *Store) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// New creates a store rooted at root. The directory is created on first save.
func New(root string, logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{root: root, quality: DefaultJPEGQuality, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Dir resolves dir against the root. An empty dir is the root itself and
// absolute paths are used unchanged.
func (s *Store) Dir(dir string) string {
	switch {
	case dir == "":
		return s.root
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(s.root, dir)
	}
}

// Path returns the destination of img inside dir.
func (s *Store) Path(img *imaging.Image, dir string) string {
	return filepath.Join(s.Dir(dir), img.Name()+img.Ext())
}

// Save encodes img into dir/<name><ext> and returns the written path.
func (s *Store) Save(ctx context.Context, img *imaging.Image, dir string) (string, error) {
	format, err := formatFor(img.Ext())
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := s.Path(img, dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := imgio.Encode(f, img.Image(), format, imgio.JPEGQuality(s.quality)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":  path,
		"index": img.Index(),
		"kind":  img.Kind().String(),
	}).Debug("Image saved")
	return path, nil
}

// SaveResult is the outcome of an asynchronous save.
type SaveResult struct {
	Path string
	Err  error
}

// SaveAsync starts Save on a new goroutine. The returned channel receives
// exactly one result and is then closed.
func (s *Store) SaveAsync(ctx context.Context, img *imaging.Image, dir string) <-chan SaveResult {
	ch := make(chan SaveResult, 1)
	go func() {
		defer close(ch)
		path, err := s.Save(ctx, img, dir)
		ch <- SaveResult{Path: path, Err: err}
	}()
	return ch
}

// Load decodes the file at path into an entity. The entity has index 0,
// the file stem as its name and the lowercased file extension.
func (s *Store) Load(path string) (*imaging.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	a, err := imaging.Decode(f)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return imaging.New(imaging.Info{Name: name, Ext: ext}, a)
}

func formatFor(ext string) (imgio.Format, error) {
	if !Supported(ext) {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	return imgio.FormatFromExtension(ext)
}
