// Package web holds the HTML pages and stylesheet served by the site.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page template. Templates are named after their
// file so handlers can render them with c.HTML.
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// RegisterStatic serves the stylesheet at /styles.css.
func RegisterStatic(router *gin.Engine) error {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}
	router.StaticFileFS("/styles.css", "styles.css", http.FS(sub))
	return nil
}
