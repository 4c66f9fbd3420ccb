package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-nodes/internal/tensor"
)

// ImageCache provides thread-safe caching of decoded source images so that
// repeated node invocations on the same file skip disk reads.
//
// Images are keyed by the exact path string given to Load. EXIF orientation
// is applied on decode.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadTensor loads path as a 1×H×W×C image batch.
func (c *ImageCache) LoadTensor(path string) (*tensor.Tensor, error) {
	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	return tensor.FromImage(img), nil
}

// LoadMask loads path as a 1×H×W mask taken from the image luminance.
func (c *ImageCache) LoadMask(path string) (*tensor.Tensor, error) {
	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	return tensor.MaskFromImage(img), nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path. Savers call it
// after overwriting a file so the next Load sees the new content.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo describes a source image as the nodes will see it.
type ImageInfo struct {
	// Width and Height are in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Shape is the tensor shape the image loads as: (1, H, W, C).
	Shape []int `json:"shape"`

	// Format is detected from the file extension.
	Format string `json:"format"`

	// HasAlpha is true when the image loads with four channels.
	HasAlpha bool `json:"has_alpha"`

	FileSizeBytes int64 `json:"file_size_bytes"`

	// MetadataKeys lists embedded PNG text chunk keywords, sorted.
	MetadataKeys []string `json:"metadata_keys,omitempty"`
}

// LoadImageInfo loads an image and reports its tensor shape and metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	t, err := cache.LoadTensor(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".bmp":
		format = "bmp"
	case ".tif", ".tiff":
		format = "tiff"
	case ".webp":
		format = "webp"
	}

	_, h, w, ch, _ := t.ImageDims()
	info := &ImageInfo{
		Width:         w,
		Height:        h,
		Shape:         t.Shape,
		Format:        format,
		HasAlpha:      ch == 4,
		FileSizeBytes: stat.Size(),
	}

	if format == "png" {
		keys, err := pngTextKeys(path)
		if err != nil {
			return nil, err
		}
		info.MetadataKeys = keys
	}
	return info, nil
}

func pngTextKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	chunks, err := ReadTextChunks(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read PNG metadata: %w", err)
	}
	keys := make([]string, 0, len(chunks))
	for k := range chunks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
