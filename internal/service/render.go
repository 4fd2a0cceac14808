package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/diagram"
	"github.com/archflow/internal/store"
	"github.com/archflow/pkg/models"
)

// InlineRenderer renders diagram versions to PNG in a background goroutine.
// It is the RenderDispatcher used when the job queue is disabled.
type InlineRenderer struct {
	diagrams    *store.DiagramStore
	renderer    *diagram.Renderer
	storagePath string
	timeout     time.Duration
}

// NewInlineRenderer creates the goroutine-backed dispatcher. Artifacts land
// under storagePath.
func NewInlineRenderer(diagrams *store.DiagramStore, renderer *diagram.Renderer, storagePath string, timeout time.Duration) *InlineRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineRenderer{
		diagrams:    diagrams,
		renderer:    renderer,
		storagePath: storagePath,
		timeout:     timeout,
	}
}

// Dispatch starts rendering in the background and returns immediately. The
// render carries its own deadline independent of the caller's context.
func (r *InlineRenderer) Dispatch(_ context.Context, diagramID int64, format models.DiagramFormat) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout+5*time.Second)
		defer cancel()
		RenderDiagram(ctx, r.diagrams, r.renderer, r.storagePath, diagramID, format)
	}()
}

// RenderDiagram loads a diagram version, renders the requested format to a
// PNG artifact under storagePath, and records the artifact URL. Best-effort:
// every failure is logged and swallowed, leaving png_url unset.
func RenderDiagram(ctx context.Context, diagrams *store.DiagramStore, renderer *diagram.Renderer, storagePath string, diagramID int64, format models.DiagramFormat) {
	d, err := diagrams.GetByID(ctx, diagramID)
	if err != nil {
		log.Warn().Err(err).Int64("diagram_id", diagramID).Msg("render skipped, diagram not found")
		return
	}

	source, ok := d.Source(format)
	if !ok {
		log.Warn().Str("format", string(format)).Msg("render skipped, unknown format")
		return
	}

	name := diagram.ArtifactName(diagramID, time.Now())
	outputPath := filepath.Join(storagePath, name)

	var rendered bool
	switch format {
	case models.FormatPlantUML:
		rendered = renderer.RenderPlantUML(ctx, source, outputPath)
	case models.FormatDrawio:
		rendered = renderer.RenderDrawio(ctx, source, outputPath)
	}
	if !rendered {
		log.Warn().Int64("diagram_id", diagramID).Msg("render produced no artifact")
		return
	}

	url := "/diagrams/images/" + name
	if err := diagrams.SetPNGURL(ctx, diagramID, url); err != nil {
		log.Warn().Err(err).Int64("diagram_id", diagramID).Msg("failed to record artifact url")
		return
	}
	log.Info().Int64("diagram_id", diagramID).Str("png_url", url).Msg("diagram rendered")
}
