package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{"PRD.md": []byte("# PRD\n")}

	data, err := p.Content("PRD.md")
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if string(data) != "# PRD\n" {
		t.Errorf("content = %q", data)
	}

	if _, err := p.Content("unknown.md"); err == nil {
		t.Error("expected error for unregistered path")
	}
}

func TestTemplateProvider(t *testing.T) {
	dir := t.TempDir()
	tpl := "# {{name}} — {{feature}}\n\nLocation: {{path}}\n"
	if err := os.WriteFile(filepath.Join(dir, "PRD.md.hbs"), []byte(tpl), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	p, err := NewTemplateProvider(dir, map[string]interface{}{"feature": "checkout"})
	if err != nil {
		t.Fatalf("NewTemplateProvider failed: %v", err)
	}

	data, err := p.Content("features/checkout/PRD.md")
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "PRD — checkout") {
		t.Errorf("rendered output missing substitutions: %q", out)
	}
	if !strings.Contains(out, "features/checkout/PRD.md") {
		t.Errorf("rendered output missing path: %q", out)
	}
}

func TestTemplateProviderNoTemplate(t *testing.T) {
	p, err := NewTemplateProvider(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewTemplateProvider failed: %v", err)
	}
	if _, err := p.Content("anything.md"); err == nil {
		t.Error("expected error when no template matches")
	}
}

func TestTemplateProviderBadTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.md.hbs"), []byte("{{#if}}"), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	if _, err := NewTemplateProvider(dir, nil); err == nil {
		t.Error("expected parse error for malformed template")
	}
}
