package diagram

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlantUML_MissingCLILeavesNoArtifact(t *testing.T) {
	r := NewRenderer(time.Second, 1920, 1080)
	r.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	out := filepath.Join(t.TempDir(), "diagram_1_100.png")
	ok := r.RenderPlantUML(context.Background(), "@startuml\n@enduml", out)

	assert.False(t, ok, "missing cli must not count as a successful render")

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no placeholder artifact for plantuml")
}

func TestRenderDrawio_MissingCLIWritesPlaceholder(t *testing.T) {
	r := NewRenderer(time.Second, 1920, 1080)
	r.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	out := filepath.Join(t.TempDir(), "diagram_2_100.png")
	require.True(t, r.RenderDrawio(context.Background(), "<mxfile/>", out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, 0, color.RGBA{255, 0, 0, 255})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestBoundImage_RescalesOversized(t *testing.T) {
	r := NewRenderer(time.Second, 1920, 1080)
	path := filepath.Join(t.TempDir(), "big.png")
	writeTestPNG(t, path, 3840, 1200)

	r.boundImage(path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 1920, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy(), "aspect ratio must be preserved")
}

func TestBoundImage_LeavesSmallImagesAlone(t *testing.T) {
	r := NewRenderer(time.Second, 1920, 1080)
	path := filepath.Join(t.TempDir(), "small.png")
	writeTestPNG(t, path, 640, 480)

	before, err := os.Stat(path)
	require.NoError(t, err)

	r.boundImage(path)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.Size(), after.Size())
}

func TestArtifactName(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	assert.Equal(t, "diagram_42_1700000000.png", ArtifactName(42, ts))
}
