// Package web renders pages and carries per-request view state: the current
// actor and queued flash messages. Every page is also available as JSON when
// the client asks for application/json.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"travelcms/internal/rbac"
	"travelcms/pkg/response"
	"travelcms/pkg/validation"
)

//go:embed templates
var templateFS embed.FS

const (
	actorKey = "actor"
	csrfKey  = "csrf_token"
)

// Page describes one rendered response
type Page struct {
	Template string
	Title    string
	Data     gin.H
	Errors   validation.Errors // per-field form errors, rendered inline
	Message  string            // error text for non-2xx JSON responses
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"fieldError": func(errs validation.Errors, field string) string {
		return errs.First(field)
	},
	"add": func(a, b int) int {
		return a + b
	},
	// dict builds the argument map of the shared "field" template
	"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
		if len(pairs)%2 != 0 {
			return nil, errors.New("dict needs key/value pairs")
		}
		m := make(map[string]interface{}, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
}

// LoadTemplates parses every embedded page. Each file defines its own name.
func LoadTemplates() (*template.Template, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return template.New("").Funcs(funcs).ParseFS(sub, "*.html", "roles/*.html")
}

// SetCSRFToken stores the token forms must echo back on POST
func SetCSRFToken(c *gin.Context, token string) {
	c.Set(csrfKey, token)
}

// CSRFToken returns the request's token, or "" outside the CSRF middleware
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfKey)
}

// SetActor stores the authenticated actor for the rest of the request
func SetActor(c *gin.Context, actor rbac.Actor) {
	c.Set(actorKey, actor)
}

// CurrentActor returns the actor stored by SetActor
func CurrentActor(c *gin.Context) (rbac.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return rbac.Actor{}, false
	}
	actor, ok := v.(rbac.Actor)
	return actor, ok
}

// Render writes p as HTML, or as the JSON envelope when the client prefers it.
// Pending flash messages are consumed either way.
func Render(c *gin.Context, status int, p Page) {
	flashes := PopFlashes(c)

	html := gin.H{
		"Title":     p.Title,
		"Flashes":   flashes,
		"Errors":    p.Errors,
		"Form":      formValues(c),
		"CSRFToken": CSRFToken(c),
	}
	if actor, ok := CurrentActor(c); ok {
		html["Actor"] = actor
		html["Can"] = capabilities(actor)
	}
	for k, v := range p.Data {
		html[k] = v
	}

	c.Negotiate(status, gin.Negotiate{
		Offered:  []string{gin.MIMEHTML, gin.MIMEJSON},
		HTMLName: p.Template,
		HTMLData: html,
		JSONData: envelope(status, p, flashes),
	})
}

// RenderError renders the dedicated page for an error status and aborts the chain
func RenderError(c *gin.Context, status int) {
	name := "500.html"
	switch status {
	case http.StatusForbidden:
		name = "403.html"
	case http.StatusNotFound:
		name = "404.html"
	}
	var data gin.H
	if name == "500.html" && status != http.StatusInternalServerError {
		data = gin.H{"Code": status}
	}
	Render(c, status, Page{Template: name, Title: http.StatusText(status), Data: data, Message: http.StatusText(status)})
	c.Abort()
}

// WantsJSON reports whether the client negotiated JSON over HTML
func WantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

func envelope(status int, p Page, flashes []Flash) response.Response {
	var res response.Response
	switch {
	case status < http.StatusBadRequest:
		res = response.Success(status, p.Data)
	case !p.Errors.Empty():
		fields := make(map[string]string, len(p.Errors))
		for field := range p.Errors {
			fields[field] = p.Errors.First(field)
		}
		res = response.Invalid(status, "validation failed", fields)
	default:
		msg := p.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		res = response.Error(status, msg)
	}
	if len(flashes) > 0 {
		texts := make([]string, len(flashes))
		for i, f := range flashes {
			texts[i] = f.Message
		}
		res = res.WithMessages(texts)
	}
	return res
}

// capabilities tells templates which navigation entries to show
func capabilities(actor rbac.Actor) map[string]bool {
	return map[string]bool{
		"Logs":    rbac.Can(actor, rbac.ViewLogs),
		"Users":   rbac.Can(actor, rbac.ManageUsers),
		"Content": rbac.Can(actor, rbac.ManageContent),
	}
}

// formValues echoes submitted values back into re-rendered forms. Passwords and
// the CSRF token are never echoed.
func formValues(c *gin.Context) map[string]string {
	if c.Request == nil || c.Request.Method != http.MethodPost {
		return map[string]string{}
	}
	if err := c.Request.ParseForm(); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(c.Request.PostForm))
	for k := range c.Request.PostForm {
		if strings.Contains(k, "password") || k == csrfKey {
			continue
		}
		out[k] = c.Request.PostForm.Get(k)
	}
	return out
}
