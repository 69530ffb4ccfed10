package chi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
)

//go:embed templates/index.html
var templatesFS embed.FS

// LoadHomeTemplate parses the home page. An empty path selects the built-in page.
func LoadHomeTemplate(path string) (*template.Template, error) {
	if path == "" {
		tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
		if err != nil {
			return nil, fmt.Errorf("parse built-in home template: %w", err)
		}
		return tmpl, nil
	}
	tmpl, err := template.ParseFiles(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("parse home template %s: %w", path, err)
	}
	return tmpl, nil
}

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.home.Execute(&buf, nil); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("render home: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
