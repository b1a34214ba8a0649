// Package uploads persists attachment files and their thumbnail
// variants in a flat upload directory.
package uploads

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
)

// Thumbnail bounding box.
const (
	thumbWidth  = 245
	thumbHeight = 156
)

// Saved describes a stored attachment.
type Saved struct {
	Name      string // original filename
	Stored    string // <stem>_<token>.<ext>
	Thumbnail string // thumbnail_<stem>_<token>.<ext>
	Mime      string
	Size      int64
}

// Store writes uploads into a single directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the upload directory path.
func (s *Store) Dir() string { return s.dir }

// Save writes the original file and a derived thumbnail. Content that
// does not decode as an image fails with a validation error; no partial
// file is left behind.
func (s *Store) Save(name string, content []byte) (Saved, error) {
	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return Saved{}, fmt.Errorf("%w: file %q is not a supported image", httpx.ErrValidation, name)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(filepath.Base(name), ext)
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]

	stored := fmt.Sprintf("%s_%s%s", stem, token, ext)
	thumbnail := "thumbnail_" + stored

	if err := os.WriteFile(filepath.Join(s.dir, stored), content, 0o644); err != nil {
		return Saved{}, err
	}

	thumb, err := encodeImage(resizeToFit(img, thumbWidth, thumbHeight), format)
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, stored))
		return Saved{}, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, thumbnail), thumb, 0o644); err != nil {
		_ = os.Remove(filepath.Join(s.dir, stored))
		return Saved{}, err
	}

	return Saved{
		Name:      name,
		Stored:    stored,
		Thumbnail: thumbnail,
		Mime:      "image/" + format,
		Size:      int64(len(content)),
	}, nil
}

// Reset removes every file in the upload directory, skipping dotfiles.
func (s *Store) Reset() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Sweep deletes files that are not in the referenced set and returns
// the number removed. Dotfiles are left alone.
func (s *Store) Sweep(referenced map[string]bool) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || referenced[name] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// resizeToFit scales the image down to fit the bounding box, keeping
// aspect ratio. Images already inside the box pass through.
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		srcY := bounds.Min.Y + y*h/outH
		for x := 0; x < outW; x++ {
			srcX := bounds.Min.X + x*w/outW
			out.Set(x, y, img.At(srcX, srcY))
		}
	}
	return out
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
