package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/internal/hub"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(0, t.TempDir(), nil, nil, hub.New())
}

func TestGetDiagramImage(t *testing.T) {
	s := newTestServer(t)

	artifact := filepath.Join(s.storagePath, "diagram_1_1700000000.png")
	require.NoError(t, os.WriteFile(artifact, []byte("png-bytes"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/diagrams/images/diagram_1_1700000000.png", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestGetDiagramImage_RejectsNonCanonicalNames(t *testing.T) {
	s := newTestServer(t)

	secret := filepath.Join(s.storagePath, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	names := []string{
		"../go.mod",
		"..%2F..%2Fetc%2Fpasswd",
		"secret.txt",
		"diagram_1_1700000000.png.bak",
		"diagram_abc_123.png",
		"diagram_1.png",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/diagrams/images/"+url.PathEscape(name), nil)
			rec := httptest.NewRecorder()
			s.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetDiagramImage_MissingArtifact(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/diagrams/images/diagram_99_1700000000.png", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
