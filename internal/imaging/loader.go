package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// stamp identifies one version of a file on disk.
type stamp struct {
	modTime time.Time
	size    int64
}

type cachedImage struct {
	img   image.Image
	stamp stamp
}

// ImageCache keeps decoded frames keyed by file path so repeated tool calls
// on the same frame skip decoding.
//
// A camera bridge typically rewrites the same file for every preview frame,
// so each Load checks the file's modification time and size and decodes
// again when either changed. A file that can no longer be read is dropped.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedImage
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedImage),
	}
}

// Load returns the frame stored at path, decoding it unless the cached copy
// is still current. PNG, JPEG, GIF, BMP and TIFF are supported.
//
// Parameters:
//   - path: file path, used verbatim as the cache key, so a relative and an
//     absolute path to the same file are cached separately
//
// Returns the decoded image.
//
// Errors:
//   - "failed to open image" when the file is missing or unreadable
//   - "failed to decode image" when the content is not a supported format
func (c *ImageCache) Load(path string) (image.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		c.evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	current := stamp{modTime: fi.ModTime(), size: fi.Size()}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.stamp == current {
		return entry.img, nil
	}

	img, err := Decode(path)
	if err != nil {
		c.evict(path)
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = cachedImage{img: img, stamp: current}
	c.mu.Unlock()

	return img, nil
}

// Len reports how many frames are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

func (c *ImageCache) evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Decode reads and decodes a single image file without caching it.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
