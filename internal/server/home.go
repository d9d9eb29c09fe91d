package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/members"
)

// homePageTemplate is the HTML for the service status page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Member Query</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 0.5rem; }
    .status-healthy { color: #008800; font-weight: 600; }
    .status-unhealthy { color: #cc0000; font-weight: 600; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Member Query</h1>
  <p class="meta">Ask questions about members. POST <code>/member/query</code> with <code>{"question": "..."}</code>.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Database: {{if .Health.Checks.Database}}OK{{else}}<span class="error">Failed</span>{{end}}</p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Capabilities</h2>
    <p>Max iterations per question: {{.MaxIterations}}. <a href="/capabilities/openapi.json">OpenAPI</a></p>
    {{if not .Capabilities}}
    <p>No capabilities available.</p>
    {{else}}
    <table>
      <thead><tr><th>Name</th><th>Description</th></tr></thead>
      <tbody>
        {{range .Capabilities}}
        <tr><td>{{.Name}}</td><td>{{.Description}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health        *members.HealthOutput
	Capabilities  []catalog.Descriptor
	MaxIterations int
}

// handleHome returns an HTTP handler for the status page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health:        s.health.Health(ctx),
			Capabilities:  s.catalog.List(),
			MaxIterations: s.cfg.MaxIterations,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", httpLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
