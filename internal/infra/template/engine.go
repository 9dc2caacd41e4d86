package template

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"
)

var _ notification.TemplateRenderer = (*Engine)(nil)

//go:embed templates/*.html
var embedded embed.FS

const emailTemplate = "email.html"

// Engine renders email bodies using Go's html/template package, so customer-supplied
// text (names, item notes, deal copy) is escaped.
type Engine struct {
	templates *template.Template
}

// NewEngine creates a new template engine from the templates compiled into the binary.
func NewEngine() (*Engine, error) {
	tmpl, err := template.ParseFS(embedded, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing embedded templates: %w", err)
	}
	return &Engine{templates: tmpl}, nil
}

// NewEngineFromDir loads templates from a directory instead, for overriding the
// built-in layout without a rebuild.
func NewEngineFromDir(templatesDir string) (*Engine, error) {
	tmpl, err := template.ParseGlob(templatesDir + "/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates from %s: %w", templatesDir, err)
	}
	if tmpl.Lookup(emailTemplate) == nil {
		return nil, fmt.Errorf("%s has no %s template", templatesDir, emailTemplate)
	}
	return &Engine{templates: tmpl}, nil
}

// RenderEmail produces the HTML body for an email.
func (e *Engine) RenderEmail(view *notification.EmailView) (string, error) {
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, emailTemplate, view); err != nil {
		return "", fmt.Errorf("executing template %s: %w", emailTemplate, err)
	}
	return buf.String(), nil
}
