// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
	"github.com/jeranaias/parley/internal/viewer"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// frontMatter is the YAML header of a markdown export.
type frontMatter struct {
	Title     string   `yaml:"title"`
	ID        string   `yaml:"id,omitempty"`
	Model     string   `yaml:"model,omitempty"`
	Created   string   `yaml:"created,omitempty"`
	Shared    string   `yaml:"shared,omitempty"`
	Messages  int      `yaml:"messages"`
	Documents []string `yaml:"documents,omitempty"`
	Exported  string   `yaml:"exported"`
	Generator string   `yaml:"generator"`
}

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(v *viewer.View) ([]byte, error) {
	if err := validate(v); err != nil {
		return nil, err
	}
	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm := frontMatter{
			Title:     v.Title,
			ID:        v.ID,
			Model:     v.Model,
			Messages:  len(v.Messages),
			Documents: v.DocumentNames,
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: "parley",
		}
		if !v.CreatedAt.IsZero() {
			fm.Created = v.CreatedAt.Format(time.RFC3339)
		}
		if !v.SharedAt.IsZero() {
			fm.Shared = v.SharedAt.Format(time.RFC3339)
		}
		header, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("encode front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(util.SingleLine(v.Title)))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if v.Model != "" {
			fmt.Fprintf(&sb, "- **Model**: %s\n", v.Model)
		}
		if !v.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(v.CreatedAt))
		}
		if !v.SharedAt.IsZero() {
			fmt.Fprintf(&sb, "- **Shared**: %s\n", formatTimestamp(v.SharedAt))
		}
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(v.Messages))
		if len(v.DocumentNames) > 0 {
			fmt.Fprintf(&sb, "- **Documents**: %s\n", strings.Join(v.DocumentNames, ", "))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range v.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}
		sb.WriteString(e.formatMessage(msg))
		sb.WriteString("\n\n")
		if i < len(v.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from parley on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) formatMessage(msg *model.Message) string {
	var parts []string
	if msg.HasImage() {
		parts = append(parts, fmt.Sprintf("![generated image](%s)", msg.ImageURL))
	}
	if content := strings.TrimSpace(msg.Content); content != "" {
		parts = append(parts, content)
	}
	if len(msg.Attachments) > 0 {
		names := make([]string, len(msg.Attachments))
		for i, n := range msg.Attachments {
			names[i] = "`" + n + "`"
		}
		label := "Attached"
		if msg.Role == model.RoleAssistant {
			label = "Documents used"
		}
		parts = append(parts, fmt.Sprintf("*%s*: %s", label, strings.Join(names, ", ")))
	}
	if keys := msg.SourceKeys(); len(keys) > 0 {
		var sb strings.Builder
		sb.WriteString("**Sources**\n")
		for _, k := range keys {
			src := msg.Sources[k]
			fmt.Fprintf(&sb, "\n- %s: [%s](%s)", k, escapeMarkdown(src.Title), src.URL)
			if src.Snippet != "" {
				fmt.Fprintf(&sb, " - %s", util.SingleLine(src.Snippet))
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in titles.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}
