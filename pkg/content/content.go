// Package content supplies bytes for newly created documents.
//
// The reconciliation engine treats document bodies as opaque: a Provider is
// just a callback from path to initial content. TemplateProvider renders
// handlebars templates; StaticProvider serves fixed bytes (tests, simple
// callers).
package content

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aymerick/raymond"
)

// Provider yields initial content for a file about to be created.
type Provider interface {
	Content(relPath string) ([]byte, error)
}

// StaticProvider serves fixed bytes keyed by relative path.
type StaticProvider map[string][]byte

// Content returns the bytes registered for relPath.
func (p StaticProvider) Content(relPath string) ([]byte, error) {
	data, ok := p[relPath]
	if !ok {
		return nil, fmt.Errorf("no content registered for %s", relPath)
	}
	return data, nil
}

// TemplateProvider renders handlebars templates. Templates are looked up by
// the target file's basename: creating "features/checkout/PRD.md" renders
// "PRD.md.hbs".
type TemplateProvider struct {
	templates map[string]*raymond.Template
	context   map[string]interface{}
}

// NewTemplateProvider parses every *.hbs file in dir. The context is merged
// into each render alongside per-file values.
func NewTemplateProvider(dir string, context map[string]interface{}) (*TemplateProvider, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.hbs"))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make(map[string]*raymond.Template, len(matches))
	for _, m := range matches {
		src, err := os.ReadFile(m) // #nosec G304 -- paths come from the glob above
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", m, err)
		}
		tpl, err := raymond.Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", m, err)
		}
		key := strings.TrimSuffix(filepath.Base(m), ".hbs")
		templates[key] = tpl
	}

	if context == nil {
		context = map[string]interface{}{}
	}
	return &TemplateProvider{templates: templates, context: context}, nil
}

// Content renders the template matching relPath's basename.
func (p *TemplateProvider) Content(relPath string) ([]byte, error) {
	base := path.Base(relPath)
	tpl, ok := p.templates[base]
	if !ok {
		return nil, fmt.Errorf("no template for %s", base)
	}

	ctx := make(map[string]interface{}, len(p.context)+2)
	for k, v := range p.context {
		ctx[k] = v
	}
	ctx["path"] = relPath
	ctx["name"] = strings.TrimSuffix(base, path.Ext(base))

	rendered, err := tpl.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render template for %s: %w", relPath, err)
	}
	return []byte(rendered), nil
}
