package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
)

// Renderer manages template parsing and rendering with isolated template sets.
//
// Templates are organized as:
//   - layouts/app.html - base layout
//   - components/*.html - reusable components
//   - partials/*.html - standalone fragments for htmx responses
//   - pages/*.html - pages (use app layout)
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
	isDev     bool
	mu        sync.RWMutex

	fsys fs.FS
	// For dev mode hot-reload
	templatesDir string
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// TemplatesDir enables loading from disk instead of FS. Set it in
	// development to pick up template edits on every request.
	TemplatesDir string
	FS           fs.FS
	Logger       *slog.Logger
	IsDev        bool
}

// NewRenderer creates a new template renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		templates:    make(map[string]*template.Template),
		logger:       cfg.Logger,
		isDev:        cfg.IsDev && cfg.TemplatesDir != "",
		fsys:         cfg.FS,
		templatesDir: cfg.TemplatesDir,
	}
	if cfg.TemplatesDir != "" {
		r.fsys = os.DirFS(cfg.TemplatesDir)
	}
	if r.fsys == nil {
		return nil, fmt.Errorf("renderer: no template source configured")
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// NewRendererFromFS creates a renderer from an embedded filesystem.
func NewRendererFromFS(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	return NewRenderer(RendererConfig{FS: fsys, Logger: logger})
}

func (r *Renderer) loadTemplates() error {
	templates := make(map[string]*template.Template)

	componentFiles, err := fs.Glob(r.fsys, "components/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob components: %w", err)
	}

	partialFiles, err := fs.Glob(r.fsys, "partials/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob partials: %w", err)
	}

	// Each partial is parsed standalone, together with the components it
	// may call.
	for _, partial := range partialFiles {
		files := append([]string{partial}, componentFiles...)
		partialTmpl, err := template.New("").Funcs(TemplateFuncs()).ParseFS(r.fsys, files...)
		if err != nil {
			return fmt.Errorf("failed to parse partial %s: %w", partial, err)
		}

		// Store with base name as key (e.g., "customer_view" for "customer_view.html")
		templates["partial/"+baseName(partial)] = partialTmpl
	}

	// Parse app layout together with components and partials so pages can
	// use {{template "partial_name"}}.
	layoutFiles := append([]string{"layouts/app.html"}, componentFiles...)
	layoutFiles = append(layoutFiles, partialFiles...)
	appBaseTmpl, err := template.New("app").Funcs(TemplateFuncs()).ParseFS(r.fsys, layoutFiles...)
	if err != nil {
		return fmt.Errorf("failed to parse app layout: %w", err)
	}

	appPages, err := fs.Glob(r.fsys, "pages/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob app pages: %w", err)
	}

	for _, page := range appPages {
		pageTmpl, err := appBaseTmpl.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone app template for %s: %w", page, err)
		}

		pageTmpl, err = pageTmpl.ParseFS(r.fsys, page)
		if err != nil {
			return fmt.Errorf("failed to parse app page %s: %w", page, err)
		}

		// Store as "customers", "trainings", etc.
		templates[baseName(page)] = pageTmpl
	}

	r.templates = templates
	r.logger.Info("templates loaded", "count", len(templates))
	return nil
}

func baseName(file string) string {
	name := path.Base(file)
	return strings.TrimSuffix(name, path.Ext(name))
}

// Reload reloads all templates. Useful for development.
func (r *Renderer) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadTemplates()
}

// Render renders a page or partial ("partial/<name>") to an io.Writer.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	// In dev mode, reload templates on each request
	if r.isDev {
		if err := r.Reload(); err != nil {
			return fmt.Errorf("template reload failed: %w", err)
		}
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	return tmpl.ExecuteTemplate(w, r.getBaseTemplateName(name), data)
}

// RenderHTTP renders a page directly to an http.ResponseWriter. Extra
// fragments, such as out-of-band toasts, are appended after the page.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data any, extra ...[]byte) {
	r.write(w, name, data, http.StatusOK, extra)
}

// RenderPartial renders a partial template (for htmx responses).
// The partial file should contain {{define "name"}}...{{end}} where name matches the file name.
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data any, extra ...[]byte) {
	r.write(w, "partial/"+name, data, http.StatusOK, extra)
}

func (r *Renderer) write(w http.ResponseWriter, name string, data any, status int, extra [][]byte) {
	// Render to buffer first to catch errors before writing headers
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "Template execution failed", http.StatusInternalServerError)
		return
	}
	for _, b := range extra {
		buf.Write(b)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// getBaseTemplateName determines which base template to execute.
func (r *Renderer) getBaseTemplateName(name string) string {
	if after, ok := strings.CutPrefix(name, "partial/"); ok {
		return after
	}
	return "app"
}

// ListTemplates returns a list of all loaded template names.
// Useful for debugging.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}
