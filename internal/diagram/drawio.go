package diagram

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/llm"
	"github.com/archflow/pkg/models"
)

// Fallback layout constants. The grid places three components per row.
const (
	gridOriginX   = 100
	gridOriginY   = 100
	gridSpacing   = 200
	cellWidth     = 120
	cellHeight    = 60
	gridPerRow    = 3
)

const (
	styleStorage = "shape=cylinder3;whiteSpace=wrap;html=1;boundedLbl=1;backgroundOutline=1;size=15;fillColor=#dae8fc;strokeColor=#6c8ebf;"
	styleQueue   = "shape=hexagon;perimeter=hexagonPerimeter2;whiteSpace=wrap;html=1;fixedSize=1;fillColor=#fff2cc;strokeColor=#d6b656;"
	styleDefault = "rounded=1;whiteSpace=wrap;html=1;fillColor=#d5e8d4;strokeColor=#82b366;"
	styleEdge    = "edgeStyle=orthogonalEdgeStyle;rounded=0;orthogonalLoop=1;jettySize=auto;html=1;"
)

type mxFile struct {
	XMLName  xml.Name  `xml:"mxfile"`
	Host     string    `xml:"host,attr"`
	Modified string    `xml:"modified,attr"`
	Agent    string    `xml:"agent,attr"`
	Version  string    `xml:"version,attr"`
	Diagram  mxDiagram `xml:"diagram"`
}

type mxDiagram struct {
	Name  string       `xml:"name,attr"`
	ID    string       `xml:"id,attr"`
	Model mxGraphModel `xml:"mxGraphModel"`
}

type mxGraphModel struct {
	Dx       string   `xml:"dx,attr"`
	Dy       string   `xml:"dy,attr"`
	Grid     string   `xml:"grid,attr"`
	GridSize string   `xml:"gridSize,attr"`
	Guides   string   `xml:"guides,attr"`
	Cells    []mxCell `xml:"root>mxCell"`
}

type mxCell struct {
	ID       string      `xml:"id,attr"`
	Value    string      `xml:"value,attr,omitempty"`
	Style    string      `xml:"style,attr,omitempty"`
	Vertex   string      `xml:"vertex,attr,omitempty"`
	Edge     string      `xml:"edge,attr,omitempty"`
	Parent   string      `xml:"parent,attr,omitempty"`
	Source   string      `xml:"source,attr,omitempty"`
	Target   string      `xml:"target,attr,omitempty"`
	Geometry *mxGeometry `xml:"mxGeometry,omitempty"`
}

type mxGeometry struct {
	X        string `xml:"x,attr,omitempty"`
	Y        string `xml:"y,attr,omitempty"`
	Width    string `xml:"width,attr,omitempty"`
	Height   string `xml:"height,attr,omitempty"`
	Relative string `xml:"relative,attr,omitempty"`
	As       string `xml:"as,attr"`
}

// GenerateDrawio produces Draw.io XML for the extraction. LLM output that is
// not well-formed XML is discarded in favor of the deterministic fallback.
func (g *Generator) GenerateDrawio(ctx context.Context, arch models.ArchitectureExtraction) string {
	response, err := g.invoke(ctx, drawioGenerationSystemPrompt, generationUserPrompt(arch, "Draw.io XML"))
	if err != nil {
		log.Warn().Err(err).Msg("drawio generation failed, using fallback")
		return FallbackDrawio(arch)
	}

	xmlStr := strings.TrimSpace(llm.StripCodeFence(response))
	if !ValidateDrawioXML(xmlStr) {
		log.Warn().Msg("generated drawio xml failed validation, using fallback")
		return FallbackDrawio(arch)
	}
	return xmlStr
}

// FallbackDrawio lays the extraction out on a fixed grid: components in
// reading order, three per row, styled by type bucket. Relationships whose
// endpoints are not both present are dropped. The output is deterministic
// for a given extraction.
func FallbackDrawio(arch models.ArchitectureExtraction) string {
	cells := []mxCell{
		{ID: "0"},
		{ID: "1", Parent: "0"},
	}

	componentIDs := make(map[string]string, len(arch.Components))
	for idx, comp := range arch.Components {
		cellID := fmt.Sprintf("comp_%d", idx+2)
		componentIDs[comp.Name] = cellID

		style := styleDefault
		switch comp.Type {
		case models.ComponentDatabase, models.ComponentCache, "storage":
			style = styleStorage
		case models.ComponentQueue:
			style = styleQueue
		}

		row := idx / gridPerRow
		col := idx % gridPerRow
		cells = append(cells, mxCell{
			ID:     cellID,
			Value:  comp.Name,
			Style:  style,
			Vertex: "1",
			Parent: "1",
			Geometry: &mxGeometry{
				X:      fmt.Sprintf("%d", gridOriginX+col*gridSpacing),
				Y:      fmt.Sprintf("%d", gridOriginY+row*gridSpacing),
				Width:  fmt.Sprintf("%d", cellWidth),
				Height: fmt.Sprintf("%d", cellHeight),
				As:     "geometry",
			},
		})
	}

	edgeID := len(arch.Components) + 2
	for _, rel := range arch.Relationships {
		source, okSource := componentIDs[rel.Source]
		target, okTarget := componentIDs[rel.Target]
		if !okSource || !okTarget {
			continue
		}

		value := rel.Label
		if value == "" {
			value = string(rel.Type)
		}
		cells = append(cells, mxCell{
			ID:       fmt.Sprintf("edge_%d", edgeID),
			Value:    value,
			Style:    styleEdge,
			Edge:     "1",
			Parent:   "1",
			Source:   source,
			Target:   target,
			Geometry: &mxGeometry{Relative: "1", As: "geometry"},
		})
		edgeID++
	}

	doc := mxFile{
		Host:     "app.diagrams.net",
		Modified: "2024-01-01T00:00:00.000Z",
		Agent:    "archflow",
		Version:  "22.0.0",
		Diagram: mxDiagram{
			Name: "Architecture",
			ID:   "diagram1",
			Model: mxGraphModel{
				Dx:       "1422",
				Dy:       "794",
				Grid:     "1",
				GridSize: "10",
				Guides:   "1",
				Cells:    cells,
			},
		},
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		// Marshal of a static struct tree cannot realistically fail.
		log.Error().Err(err).Msg("drawio fallback marshal failed")
		return `<mxfile host="app.diagrams.net"><diagram name="Architecture" id="diagram1"><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/></root></mxGraphModel></diagram></mxfile>`
	}
	return string(out)
}

// ValidateDrawioXML reports whether the string parses as well-formed XML with
// an mxfile document element.
func ValidateDrawioXML(xmlStr string) bool {
	var doc struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal([]byte(xmlStr), &doc); err != nil {
		return false
	}
	return doc.XMLName.Local == "mxfile"
}
