// Package handler contains the HTTP handlers for the blog: server-rendered
// HTML pages, form processing, flash messages, and the single boundary
// where domain errors become redirects and status pages.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/yuin/goldmark"
)

// pages are the views that pair with base.html. Each entry becomes its own
// template set so every page can define its own "content" block without
// colliding with the others.
var pages = []string{
	"index", "post", "create", "update",
	"login", "register",
	"403", "404", "500",
}

// Renderer holds the parsed template sets and renders them with the
// request's identity and pending flash messages injected.
type Renderer struct {
	templates map[string]*template.Template
	flash     *FlashStore
	logger    *slog.Logger
}

// NewRenderer parses all templates up front — a malformed template fails at
// startup, not on the first unlucky request.
//
// TEMPLATE COMPOSITION:
// base.html defines the page skeleton and references {{template "content"}}
// and {{template "title"}}; each view file fills those blocks in. Go
// templates have no inheritance, so each view is parsed together with the
// base into its own independent set.
func NewRenderer(templateDir string, flash *FlashStore, logger *slog.Logger) (*Renderer, error) {
	md := goldmark.New() // default policy: raw HTML in markdown is not passed through

	funcs := template.FuncMap{
		// markdown renders a post body. goldmark escapes/omits embedded raw
		// HTML, so user content can't inject script tags through this path.
		"markdown": func(source string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(source), &buf); err != nil {
				// Degrade to escaped plain text rather than failing the page.
				return template.HTML(template.HTMLEscapeString(source))
			}
			return template.HTML(buf.String())
		},
		// pageNumbers feeds the pager: 1..n
		"pageNumbers": func(n int) []int {
			nums := make([]int, n)
			for i := range nums {
				nums[i] = i + 1
			}
			return nums
		},
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing template %q: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &Renderer{
		templates: templates,
		flash:     flash,
		logger:    logger,
	}, nil
}

// Render writes the named view with the given status code.
//
// Two keys are always injected into the data map before execution:
// "CurrentUser" (the resolved identity, nil for anonymous) and "Flashes"
// (pending flash messages, consumed by this render).
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, page string, status int, data map[string]any) {
	tmpl, ok := rn.templates[page]
	if !ok {
		rn.logger.Error("unknown template requested", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	user, _ := auth.CurrentUser(r.Context())
	data["CurrentUser"] = user
	data["Flashes"] = rn.flash.Pop(w, r)

	// Render to a buffer first: a template failure mid-stream would
	// otherwise send half a page with a 200 status already committed.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rn.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderError is the single place domain errors turn into HTTP responses.
//
// MAPPING:
//   - ErrUnauthenticated → flash a warning and redirect to the login page
//   - ErrForbidden       → 403 page
//   - ErrNotFound        → 404 page
//   - anything else      → 500 page with a generic message; the real error
//     is already in the logs, never in the response
//
// Validation and conflict errors don't come through here — the form
// handlers re-render their own page with the field message flashed.
func (rn *Renderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		rn.flash.Add(w, r, FlashWarning, "You need to be logged in to access this page.")
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	case errors.Is(err, apperror.ErrForbidden):
		rn.Render(w, r, "403", http.StatusForbidden, nil)
	case errors.Is(err, apperror.ErrNotFound):
		rn.Render(w, r, "404", http.StatusNotFound, nil)
	default:
		rn.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		rn.Render(w, r, "500", http.StatusInternalServerError, nil)
	}
}
