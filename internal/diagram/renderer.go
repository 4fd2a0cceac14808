package diagram

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer turns diagram source into PNG artifacts by shelling out to the
// format CLIs. Rendering is strictly best-effort: a failed PlantUML render
// leaves no artifact behind, a failed Draw.io render degrades to a
// placeholder PNG, and neither surfaces an error to the pipeline.
type Renderer struct {
	timeout   time.Duration
	maxWidth  int
	maxHeight int

	// overridable in tests
	lookPath func(string) (string, error)
}

// NewRenderer creates a renderer with the given per-render timeout and
// artifact size bound.
func NewRenderer(timeout time.Duration, maxWidth, maxHeight int) *Renderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{
		timeout:   timeout,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		lookPath:  exec.LookPath,
	}
}

// RenderPlantUML renders PlantUML source to a PNG at outputPath. Returns
// true only when a real artifact exists afterwards; when the CLI is missing
// or the render fails, no artifact is written and the image reference stays
// unset.
func (r *Renderer) RenderPlantUML(ctx context.Context, code, outputPath string) bool {
	if _, err := r.lookPath("plantuml"); err != nil {
		log.Warn().Msg("plantuml cli not available")
		return false
	}

	sourcePath := strings.TrimSuffix(outputPath, ".png") + ".puml"
	if err := os.WriteFile(sourcePath, []byte(code), 0o644); err != nil {
		log.Warn().Err(err).Msg("failed to write plantuml source")
		return false
	}
	defer os.Remove(sourcePath)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "plantuml", "-tpng", "-o", filepath.Dir(outputPath), sourcePath)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Warn().Err(err).Str("output", string(out)).Msg("plantuml render failed")
		return false
	}

	// plantuml names its output after the source file
	rendered := strings.TrimSuffix(sourcePath, ".puml") + ".png"
	if rendered != outputPath {
		if err := os.Rename(rendered, outputPath); err != nil {
			log.Warn().Err(err).Msg("failed to move rendered plantuml artifact")
			return false
		}
	}

	r.boundImage(outputPath)
	return true
}

// RenderDrawio renders Draw.io XML to a PNG at outputPath via the drawio
// desktop CLI. Absence of the CLI yields a placeholder.
func (r *Renderer) RenderDrawio(ctx context.Context, xmlSource, outputPath string) bool {
	if _, err := r.lookPath("drawio"); err != nil {
		log.Debug().Msg("drawio cli not available, writing placeholder")
		return r.writePlaceholder(outputPath, "Draw.io rendering unavailable")
	}

	sourcePath := strings.TrimSuffix(outputPath, ".png") + ".drawio"
	if err := os.WriteFile(sourcePath, []byte(xmlSource), 0o644); err != nil {
		log.Warn().Err(err).Msg("failed to write drawio source")
		return false
	}
	defer os.Remove(sourcePath)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "drawio", "--export", "--format", "png", "--output", outputPath, sourcePath)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Warn().Err(err).Str("output", string(out)).Msg("drawio render failed")
		return r.writePlaceholder(outputPath, "Draw.io rendering failed")
	}

	r.boundImage(outputPath)
	return true
}

// writePlaceholder emits a small PNG carrying a descriptive label so the
// artifact URL stays serveable when real rendering is unavailable.
func (r *Renderer) writePlaceholder(outputPath, label string) bool {
	const width, height = 480, 120

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{245, 245, 245, 255}), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{80, 80, 80, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(16, height/2),
	}
	drawer.DrawString(label)

	f, err := os.Create(outputPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create placeholder artifact")
		return false
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		log.Warn().Err(err).Msg("failed to encode placeholder artifact")
		return false
	}
	return true
}

// boundImage rescales the PNG at path so it fits within the configured
// maximum dimensions, preserving aspect ratio. Images already within bounds
// are left untouched.
func (r *Renderer) boundImage(path string) {
	if r.maxWidth <= 0 || r.maxHeight <= 0 {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}
	src, err := png.Decode(f)
	f.Close()
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("skipping rescale of undecodable artifact")
		return
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= r.maxWidth && h <= r.maxHeight {
		return
	}

	scale := float64(r.maxWidth) / float64(w)
	if s := float64(r.maxHeight) / float64(h); s < scale {
		scale = s
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	out, err := os.Create(path)
	if err != nil {
		return
	}
	defer out.Close()
	if err := png.Encode(out, dst); err != nil {
		log.Warn().Err(err).Msg("failed to write rescaled artifact")
	}
}

// ArtifactName is the canonical on-disk name for a rendered diagram version.
func ArtifactName(diagramID int64, ts time.Time) string {
	return fmt.Sprintf("diagram_%d_%d.png", diagramID, ts.Unix())
}
