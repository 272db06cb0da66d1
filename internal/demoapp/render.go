package demoapp

import (
	"bytes"
	"embed"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const templateDir = "templates"

// embedLoader serves pongo2 templates from the embedded directory.
type embedLoader struct {
	fs embed.FS
}

func (l embedLoader) Abs(_, name string) string {
	if strings.HasPrefix(name, templateDir+"/") {
		return name
	}
	return path.Join(templateDir, name)
}

func (l embedLoader) Get(p string) (io.Reader, error) {
	b, err := l.fs.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// Renderer renders the embedded pongo2 templates into gin responses.
type Renderer struct {
	set    *pongo2.TemplateSet
	logger *zap.Logger
}

func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{
		set:    pongo2.NewSet("demoapp", embedLoader{fs: templateFS}),
		logger: logger,
	}
}

// Render executes the named template into the response.
func (r *Renderer) Render(c *gin.Context, code int, name string, data pongo2.Context) error {
	tmpl, err := r.set.FromCache(name)
	if err != nil {
		return err
	}

	ctx := pongo2.Context{"Path": c.Request.URL.Path}
	ctx.Update(data)

	out, err := tmpl.ExecuteBytes(ctx)
	if err != nil {
		return err
	}
	c.Data(code, "text/html; charset=utf-8", out)
	return nil
}

// HTML renders a template and answers 500 when rendering fails.
func (r *Renderer) HTML(c *gin.Context, code int, name string, data pongo2.Context) {
	if err := r.Render(c, code, name, data); err != nil {
		r.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}
