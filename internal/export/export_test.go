// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/viewer"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleView() *viewer.View {
	at := time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC)
	user := model.NewUserMessage("Summarise this", []string{"report.pdf"})
	user.Timestamp = at
	reply := model.NewAssistantMessage("It says **hello**.\n\n```go\nfmt.Println(1)\n```")
	reply.Timestamp = at.Add(time.Second)
	image := model.NewImageMessage("https://images.example.test/cat.png")
	image.Timestamp = at.Add(2 * time.Second)
	search := model.NewSearchMessage("Go is a language [1]", map[string]model.Source{
		"0": {Title: "Go", URL: "https://go.dev", Snippet: "The Go\nlanguage"},
	})
	search.Timestamp = at.Add(3 * time.Second)

	conv := &model.Conversation{
		ID:        "chat-1",
		Title:     "Test\nInjection: *bold*",
		CreatedAt: at,
		Model:     "gpt-4o",
		Messages:  []*model.Message{user, reply, image, search},
	}
	return viewer.FromConversation(conv)
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleView())
	require.NoError(t, err)
	md := string(out)

	require.True(t, strings.HasPrefix(md, "---\n"))
	end := strings.Index(md[4:], "\n---\n")
	require.Positive(t, end)
	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(md[4:4+end]), &fm))
	assert.Equal(t, "Test\nInjection: *bold*", fm.Title)
	assert.Equal(t, "chat-1", fm.ID)
	assert.Equal(t, 4, fm.Messages)
	assert.Equal(t, []string{"report.pdf"}, fm.Documents)
	assert.Equal(t, "2025-01-02T03:04:05Z", fm.Exported)
	assert.Equal(t, "parley", fm.Generator)

	for _, want := range []string{
		`# Test Injection: \*bold\*`,
		"### You <sub>10:00:00</sub>",
		"*Attached*: `report.pdf`",
		"```go\nfmt.Println(1)\n```",
		"![generated image](https://images.example.test/cat.png)",
		"- 0: [Go](https://go.dev) - The Go language",
		"*Exported from parley on January 2, 2025 at 3:04 AM*",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdownWithoutMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(sampleView())
	require.NoError(t, err)
	md := string(out)
	assert.True(t, strings.HasPrefix(md, "# "))
	assert.NotContains(t, md, "Session Information")
	assert.Contains(t, md, "### You\n")
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(testOptions()).Export(sampleView())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, JSONFormatVersion, doc.Format)
	assert.True(t, doc.ExportedAt.Equal(fixedNow))
	require.NotNil(t, doc.Conversation)
	assert.Equal(t, "chat-1", doc.Conversation.ID)
	require.Len(t, doc.Conversation.Messages, 4)
	assert.Equal(t, "https://images.example.test/cat.png", doc.Conversation.Messages[2].ImageURL)
	assert.Equal(t, "https://go.dev", doc.Conversation.Messages[3].Sources["0"].URL)
}

func TestHTMLExport(t *testing.T) {
	v := sampleView()
	v.Title = "<b>Title</b>"
	v.Messages = append(v.Messages, model.NewAssistantMessage("<script>alert(1)</script>"))

	out, err := NewHTMLExporter(testOptions()).Export(v)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>&lt;b&gt;Title&lt;/b&gt;</title>")
	assert.Contains(t, page, "<strong>hello</strong>")
	assert.Contains(t, page, `<img src="https://images.example.test/cat.png"`)
	assert.Contains(t, page, `<a href="https://go.dev">Go</a>`)
	assert.Contains(t, page, "<code>report.pdf</code>")
	assert.NotContains(t, page, "<script>alert(1)</script>")
}

func TestEmptyConversation(t *testing.T) {
	empty := &viewer.View{Title: "empty"}
	exporters := []Exporter{
		NewMarkdownExporter(nil),
		NewHTMLExporter(nil),
	}
	for _, e := range exporters {
		t.Run(e.FileExtension(), func(t *testing.T) {
			_, err := e.Export(nil)
			assert.ErrorIs(t, err, ErrNilConversation)
			_, err = e.Export(empty)
			assert.ErrorIs(t, err, ErrEmptyConversation)
		})
	}

	_, err := NewJSONExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrNilConversation)
	_, err = NewJSONExporter(nil).Export(empty)
	assert.NoError(t, err)
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"markdown", ".md"},
		{"MD", ".md"},
		{"", ".md"},
		{"json", ".json"},
		{"html", ".html"},
		{"htm", ".html"},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			e, err := ForFormat(tc.format, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.ext, e.FileExtension())
		})
	}

	_, err := ForFormat("pdf", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestToFile(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = t.TempDir()
	v := sampleView()
	v.Title = "Trip / plans"

	path, err := ToFile(v, NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.OutputDir, "conversation_Trip_-_plans_20250102_030405.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\n"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, WriteFile(sampleView(), NewJSONExporter(testOptions()), path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = WriteFile(&viewer.View{}, NewMarkdownExporter(nil), filepath.Join(t.TempDir(), "x.md"))
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "conversation"},
		{"   ", "conversation"},
		{"a:b*c?", "a-b-c-"},
		{"two words", "two_words"},
		{"tab\there", "tab_here"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in), "input %q", tc.in)
	}
}
