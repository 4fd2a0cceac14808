package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/archflow/internal/diagram"
	"github.com/archflow/internal/logging"
	"github.com/archflow/pkg/models"
)

// RenderCheckCommand returns a command that probes the rendering toolchain
// and writes a sample artifact, so operators can verify PNG export before
// pointing real traffic at the server.
func RenderCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "render-check",
		Usage: "Verify the diagram rendering toolchain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for the sample artifact",
				Value:   ".",
			},
		},
		Action: runRenderCheck,
	}
}

func runRenderCheck(c *cli.Context) error {
	logging.Setup()

	for _, tool := range []string{"plantuml", "drawio"} {
		if path, err := exec.LookPath(tool); err == nil {
			fmt.Printf("%-10s found at %s\n", tool, path)
		} else {
			fmt.Printf("%-10s not found\n", tool)
		}
	}

	sample := diagram.FallbackPlantUML(models.ArchitectureExtraction{
		Components: []models.Component{
			{Type: models.ComponentAPI, Name: "API Gateway", Technologies: []string{"Nginx"}},
			{Type: models.ComponentDatabase, Name: "Primary DB", Technologies: []string{"PostgreSQL"}},
		},
		Relationships: []models.Relationship{
			{Source: "API Gateway", Target: "Primary DB", Type: models.RelStorage, Label: "reads/writes"},
		},
		Context: "render check sample",
	})

	outDir := c.String("output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outDir, diagram.ArtifactName(0, time.Now()))

	renderer := diagram.NewRenderer(30*time.Second, 1920, 1080)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !renderer.RenderPlantUML(ctx, sample, outputPath) {
		return fmt.Errorf("render check failed: no artifact produced")
	}

	fmt.Printf("Wrote sample artifact to %s\n", outputPath)
	return nil
}
