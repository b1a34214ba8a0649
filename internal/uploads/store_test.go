package uploads

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return s
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestSaveWritesOriginalAndThumbnail(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.Save("admin.jpg", jpegBytes(t, 600, 400))
	require.NoError(t, err)

	require.Equal(t, "admin.jpg", saved.Name)
	require.True(t, strings.HasPrefix(saved.Stored, "admin_"))
	require.True(t, strings.HasSuffix(saved.Stored, ".jpg"))
	require.Equal(t, "thumbnail_"+saved.Stored, saved.Thumbnail)
	require.Equal(t, "image/jpeg", saved.Mime)

	for _, name := range []string{saved.Stored, saved.Thumbnail} {
		_, err := os.Stat(filepath.Join(s.Dir(), name))
		require.NoError(t, err, "expected %s on disk", name)
	}

	thumbBytes, err := os.ReadFile(filepath.Join(s.Dir(), saved.Thumbnail))
	require.NoError(t, err)
	thumb, _, err := image.Decode(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	require.LessOrEqual(t, thumb.Bounds().Dx(), 245)
	require.LessOrEqual(t, thumb.Bounds().Dy(), 156)
}

func TestSaveKeepsSmallImagesUnresized(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.Save("icon.jpg", jpegBytes(t, 100, 80))
	require.NoError(t, err)

	thumbBytes, err := os.ReadFile(filepath.Join(s.Dir(), saved.Thumbnail))
	require.NoError(t, err)
	thumb, _, err := image.Decode(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	require.Equal(t, 100, thumb.Bounds().Dx())
	require.Equal(t, 80, thumb.Bounds().Dy())
}

func TestSaveGeneratesDistinctNames(t *testing.T) {
	s := newTestStore(t)
	content := jpegBytes(t, 50, 50)

	first, err := s.Save("admin.jpg", content)
	require.NoError(t, err)
	second, err := s.Save("admin.jpg", content)
	require.NoError(t, err)
	require.NotEqual(t, first.Stored, second.Stored)
}

func TestSaveRejectsNonImage(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("notes.txt", []byte("plain text"))
	require.ErrorIs(t, err, httpx.ErrValidation)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Empty(t, entries, "a rejected upload must leave no file behind")
}

func TestResetSkipsDotfiles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("admin.jpg", jpegBytes(t, 50, 50))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".gitkeep"), nil, 0o644))

	require.NoError(t, s.Reset())

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ".gitkeep", entries[0].Name())
}

func TestSweepRemovesUnreferencedFiles(t *testing.T) {
	s := newTestStore(t)

	kept, err := s.Save("keep.jpg", jpegBytes(t, 50, 50))
	require.NoError(t, err)
	_, err = s.Save("orphan.jpg", jpegBytes(t, 50, 50))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".gitkeep"), nil, 0o644))

	removed, err := s.Sweep(map[string]bool{kept.Stored: true, kept.Thumbnail: true})
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{kept.Stored, kept.Thumbnail, ".gitkeep"}, names)
}
