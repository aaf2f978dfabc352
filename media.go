package fanray

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// MediaLibrary stores uploaded files on disk under the static directory and
// records their metadata in the store. It backs both the admin upload form
// and the MetaWeblog newMediaObject method.
type MediaLibrary struct {
	store   *Store
	dir     string
	baseURL string
}

// NewMediaLibrary creates a MediaLibrary writing under staticDir/uploads.
func NewMediaLibrary(store *Store, staticDir, baseURL string) *MediaLibrary {
	return &MediaLibrary{store: store, dir: filepath.Join(staticDir, uploadsSubdir), baseURL: baseURL}
}

// Save stores an upload and returns its absolute URL. Images wider than
// maxImageWidth are downscaled and re-encoded as JPEG; other content types
// are written as-is. Filenames are slugified with a short random suffix so
// concurrent uploads of the same name never collide.
func (m *MediaLibrary) Save(name, contentType string, data []byte) (string, error) {
	if len(data) > maxUploadSize {
		return "", fmt.Errorf("media: file too large (max %d bytes)", maxUploadSize)
	}
	med := Media{
		OriginalName: name,
		ContentType:  contentType,
		Size:         len(data),
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	ext := strings.ToLower(filepath.Ext(name))
	if strings.HasPrefix(contentType, "image/") {
		img, resized, w, h, err := processImage(data)
		if err != nil {
			return "", err
		}
		data = img
		med.Width, med.Height = w, h
		med.Size = len(data)
		if resized {
			med.ContentType = "image/jpeg"
			ext = ".jpg"
		}
	}
	med.Filename = uniqueFilename(name, ext)

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, med.Filename), data, 0o644); err != nil {
		return "", fmt.Errorf("media: write file: %w", err)
	}
	if err := m.store.SaveMedia(med); err != nil {
		return "", err
	}
	return BuildURL(m.baseURL, uploadsPublicPath, med.Filename), nil
}

const uploadsPublicPath = "public/" + uploadsSubdir

// processImage decodes an image, downscales it if wider than maxImageWidth,
// and reports the final dimensions. Oversized images come back JPEG-encoded.
func processImage(data []byte) (out []byte, resized bool, w, h int, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, 0, 0, fmt.Errorf("media: decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h = bounds.Dx(), bounds.Dy()
	if w <= maxImageWidth {
		return data, false, w, h, nil
	}
	newH := h * maxImageWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, 0, 0, fmt.Errorf("media: encode jpeg: %w", err)
	}
	return buf.Bytes(), true, maxImageWidth, newH, nil
}

func uniqueFilename(original, ext string) string {
	base := Slugify(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if base == "" {
		base = "upload"
	}
	suffix := uuid.NewString()[:8]
	return base + "-" + suffix + ext
}
