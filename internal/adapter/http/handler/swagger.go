package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// The document covers four route families with different credentials:
// /webhook-receiver (partner HMAC signature), /webhook-sender and /admin
// (admin session JWT), /auth (session JWT) and /api-courses (X-API-Key).
var openAPI struct {
	doc  []byte
	etag string
}

// SetSwaggerSpec sets the OpenAPI document served at /swagger/spec.
func SetSwaggerSpec(doc []byte) {
	sum := sha256.Sum256(doc)
	openAPI.doc = doc
	openAPI.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
}

// LoadSwaggerSpec reads the OpenAPI YAML from path and serves it.
func LoadSwaggerSpec(path string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read openapi document: %w", err)
	}
	SetSwaggerSpec(doc)
	return nil
}

// SwaggerSpec serves the raw OpenAPI YAML. The debugging UI polls it, so a
// matching If-None-Match gets 304.
func SwaggerSpec(c *gin.Context) {
	if openAPI.doc == nil {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Header("ETag", openAPI.etag)
	if c.GetHeader("If-None-Match") == openAPI.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", openAPI.doc)
}

// SwaggerUI serves the docs page. Authorizations persist across reloads so
// an admin token or API key only has to be entered once.
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Course Admin Gateway - API Docs</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger/spec',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout',
      tagsSorter: 'alpha',
      displayRequestDuration: true,
      persistAuthorization: true
    });
  </script>
</body>
</html>`
