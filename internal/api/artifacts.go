package api

import (
	"net/http"
	"path/filepath"
	"regexp"

	"github.com/labstack/echo/v4"
)

// artifactNamePattern matches the canonical render artifact names. Anything
// else, path separators and traversal sequences included, is rejected before
// touching the filesystem.
var artifactNamePattern = regexp.MustCompile(`^diagram_\d+_\d+\.png$`)

func (s *Server) getDiagramImage(c echo.Context) error {
	name := c.Param("name")
	if !artifactNamePattern.MatchString(name) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid artifact name")
	}
	return c.File(filepath.Join(s.storagePath, name))
}
