package imaging

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrEmptyPath is returned when an image path is empty.
var ErrEmptyPath = errors.New("image path is empty")

// LoadOptions controls how a decoded image is normalized.
type LoadOptions struct {
	// Width and Height resize the image to a fixed size. Both must be
	// positive for the resize to apply.
	Width  int
	Height int
}

func (o LoadOptions) resizes() bool {
	return o.Width > 0 && o.Height > 0
}

// LoadImage reads and decodes an image file, honoring EXIF orientation, and
// applies opts. Supported formats are PNG, JPEG, GIF, BMP and TIFF.
//
// The returned image always has its bounds origin at (0, 0).
func LoadImage(path string, opts LoadOptions) (image.Image, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return normalize(img, opts), nil
}

// Decode decodes an image from r and applies opts.
func Decode(r io.Reader, opts LoadOptions) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return normalize(img, opts), nil
}

// normalize resizes when requested and moves the bounds origin to (0, 0).
func normalize(img image.Image, opts LoadOptions) image.Image {
	if opts.resizes() {
		b := img.Bounds()
		if b.Dx() != opts.Width || b.Dy() != opts.Height {
			return imaging.Resize(img, opts.Width, opts.Height, imaging.Lanczos)
		}
	}
	return ZeroOrigin(img)
}

// ZeroOrigin returns img unchanged when its bounds start at (0, 0) and a
// copy moved to the origin otherwise.
func ZeroOrigin(img image.Image) image.Image {
	if img.Bounds().Min != (image.Point{}) {
		return imaging.Clone(img)
	}
	return img
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant
// disk reads.
//
// Images are keyed by the exact path string; different spellings of the same
// file produce separate entries. All entries are loaded with the same
// LoadOptions. Cached images remain in memory until Evict or Clear.
//
//	cache := imaging.NewImageCache(imaging.LoadOptions{Width: 1280, Height: 720})
//	img, err := cache.Load("/path/to/image.png")
type ImageCache struct {
	mu     sync.RWMutex
	opts   LoadOptions
	images map[string]image.Image
}

// NewImageCache creates an empty cache whose entries are loaded with opts.
func NewImageCache(opts LoadOptions) *ImageCache {
	return &ImageCache{
		opts:   opts,
		images: make(map[string]image.Image),
	}
}

// Options returns the load options applied to every cached image.
func (c *ImageCache) Options() LoadOptions {
	return c.opts
}

// Load retrieves an image from the cache or loads it from disk if not cached.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadImage(path, c.opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cached, ok := c.images[path]; ok {
		img = cached
	} else {
		c.images[path] = img
	}
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path. Unknown paths
// are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Dimensions contains the width and height of an image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image as the cache loads it,
// after any configured resize.
func GetDimensions(cache *ImageCache, path string) (*Dimensions, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &Dimensions{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
