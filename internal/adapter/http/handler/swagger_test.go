package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swaggerRouter(t *testing.T) *gin.Engine {
	t.Helper()
	saved := openAPI
	t.Cleanup(func() { openAPI = saved })

	r := gin.New()
	r.GET("/swagger", SwaggerUI)
	r.GET("/swagger/spec", SwaggerSpec)
	return r
}

func TestSwaggerSpec_NotLoaded(t *testing.T) {
	r := swaggerRouter(t)
	openAPI.doc, openAPI.etag = nil, ""

	w := perform(r, http.MethodGet, "/swagger/spec", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoadSwaggerSpec(t *testing.T) {
	r := swaggerRouter(t)
	doc := []byte("openapi: 3.0.3\ninfo:\n  title: Course Admin Gateway\n")
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	require.NoError(t, LoadSwaggerSpec(path))

	w := perform(r, http.MethodGet, "/swagger/spec", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(doc), w.Body.String())
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = perform(r, http.MethodGet, "/swagger/spec", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestLoadSwaggerSpec_MissingFile(t *testing.T) {
	swaggerRouter(t)
	err := LoadSwaggerSpec(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read openapi document")
}

func TestSwaggerUI(t *testing.T) {
	r := swaggerRouter(t)

	w := perform(r, http.MethodGet, "/swagger", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "url: '/swagger/spec'")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}
