// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/viewer"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page. Message
// content is rendered from markdown; raw HTML in messages is dropped.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, md: goldmark.New()}
}

type htmlSource struct {
	Key, Title, URL, Snippet string
}

type htmlMessage struct {
	Role        string
	Label       string
	Time        string
	ImageURL    string
	Body        template.HTML
	Attachments []string
	Sources     []htmlSource
}

type htmlPage struct {
	Title     string
	Model     string
	Created   string
	Shared    string
	Exported  string
	Count     int
	Documents []string
	Metadata  bool
	Messages  []htmlMessage
}

// Export converts a conversation to HTML.
func (e *HTMLExporter) Export(v *viewer.View) ([]byte, error) {
	if err := validate(v); err != nil {
		return nil, err
	}
	page := htmlPage{
		Title:     v.Title,
		Model:     v.Model,
		Count:     len(v.Messages),
		Documents: v.DocumentNames,
		Metadata:  e.options.IncludeMetadata,
		Exported:  e.options.now().Format("January 2, 2006 at 3:04 PM"),
	}
	if !v.CreatedAt.IsZero() {
		page.Created = formatTimestamp(v.CreatedAt)
	}
	if !v.SharedAt.IsZero() {
		page.Shared = formatTimestamp(v.SharedAt)
	}
	for _, m := range v.Messages {
		page.Messages = append(page.Messages, e.message(m))
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) message(m *model.Message) htmlMessage {
	out := htmlMessage{
		Role:        string(m.Role),
		Label:       m.Role.DisplayName(),
		ImageURL:    m.ImageURL,
		Body:        e.render(m.Content),
		Attachments: m.Attachments,
	}
	if e.options.IncludeTimestamps && !m.Timestamp.IsZero() {
		out.Time = m.Timestamp.Format(time.TimeOnly)
	}
	for _, k := range m.SourceKeys() {
		s := m.Sources[k]
		out.Sources = append(out.Sources, htmlSource{Key: k, Title: s.Title, URL: s.URL, Snippet: s.Snippet})
	}
	return out
}

// render converts markdown content to HTML, falling back to escaped
// preformatted text.
func (e *HTMLExporter) render(content string) template.HTML {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(content), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(content) + "</pre>")
	}
	return template.HTML(buf.String())
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta name="generator" content="parley">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            line-height: 1.6; color: #c0caf5; background: #1a1b26; padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; background: #24283b; border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: #414868; }
        .header h1 { font-size: 28px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: #a9b1d6; }
        .message { padding: 20px 32px; border-bottom: 1px solid #414868; }
        .message.user { background: #1f2335; }
        .role { font-weight: 700; color: #7aa2f7; }
        .message.assistant .role { color: #9ece6a; }
        .time { font-size: 12px; color: #565f89; margin-left: 8px; }
        .content { margin-top: 8px; }
        .content pre, .content code { font-family: "SF Mono", Monaco, monospace; background: #1a1b26; }
        .content pre { padding: 12px; border-radius: 6px; overflow-x: auto; }
        .content img { max-width: 100%; border-radius: 8px; }
        .attachments, .sources { margin-top: 8px; font-size: 14px; color: #a9b1d6; }
        a { color: #bb9af7; }
        .footer { padding: 16px 32px; font-size: 13px; color: #565f89; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <header class="header">
            <h1>{{.Title}}</h1>
            {{- if .Metadata}}
            <div class="metadata">
                {{- if .Model}}<span><strong>Model:</strong> {{.Model}}</span>{{end}}
                {{- if .Created}}<span><strong>Created:</strong> {{.Created}}</span>{{end}}
                {{- if .Shared}}<span><strong>Shared:</strong> {{.Shared}}</span>{{end}}
                <span><strong>Messages:</strong> {{.Count}}</span>
                {{- if .Documents}}<span><strong>Documents:</strong> {{range $i, $d := .Documents}}{{if $i}}, {{end}}{{$d}}{{end}}</span>{{end}}
            </div>
            {{- end}}
        </header>
        <main class="conversation">
        {{- range .Messages}}
            <section class="message {{.Role}}">
                <span class="role">{{.Label}}</span>{{if .Time}}<span class="time">{{.Time}}</span>{{end}}
                <div class="content">
                {{- if .ImageURL}}<img src="{{.ImageURL}}" alt="generated image">{{end}}
                {{.Body}}
                </div>
                {{- if .Attachments}}
                <div class="attachments">Attached: {{range $i, $a := .Attachments}}{{if $i}}, {{end}}<code>{{$a}}</code>{{end}}</div>
                {{- end}}
                {{- if .Sources}}
                <ol class="sources">
                {{- range .Sources}}
                    <li><a href="{{.URL}}">{{.Title}}</a>{{if .Snippet}} - {{.Snippet}}{{end}}</li>
                {{- end}}
                </ol>
                {{- end}}
            </section>
        {{- end}}
        </main>
        <footer class="footer">Exported from <strong>parley</strong> on {{.Exported}}</footer>
    </div>
</body>
</html>
`))
