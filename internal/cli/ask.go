// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot messages.
//
// Command: ask
// Short:   Send one message and print the reply
//
// Examples:
//
//	parley ask "What changed in Go 1.22?"
//	parley ask --search "latest Go release"
//	parley ask --image "a lighthouse at dusk"
//	parley ask --mode search "Go release schedule"
//	parley ask "Summarize" -f report.pdf -f notes.txt
//	git diff | parley ask --stdin "Review this diff"
//
// The message continues this terminal's conversation; --new starts a
// fresh one.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
)

// maxStdinBytes bounds a message read from stdin.
const maxStdinBytes = 1 << 20

func (a *App) runAsk(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)

	text := p.JoinFrom(0)
	if p.BoolFlag("stdin") || (text == "" && !term.IsTerminal(int(a.in.Fd()))) {
		piped, err := io.ReadAll(io.LimitReader(a.in, maxStdinBytes))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if body := strings.TrimSpace(string(piped)); body != "" {
			text = strings.TrimSpace(text + "\n\n" + body)
		}
	}

	atts, err := a.policy.LoadAll(p.Flags("file"))
	if err != nil {
		return err
	}
	if text == "" && len(atts) == 0 {
		return ErrMissingArgument("message", `parley ask "text"`)
	}

	search, image := p.BoolFlag("search"), p.BoolFlag("image")
	if v := p.Flag("mode"); v != "" {
		m, err := model.ParseMode(v)
		if err != nil {
			return NewValidationError("mode", v, "must be text, image, document or search")
		}
		switch m {
		case model.ModeSearch:
			search = true
		case model.ModeImage:
			image = true
		case model.ModeDocument:
			if len(atts) == 0 {
				return NewValidationError("mode", v, "needs at least one --file")
			}
		}
	}

	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	if args.Model != "" {
		if err := conv.SelectModel(args.Model); err != nil {
			return err
		}
	}
	if p.BoolFlag("new") {
		conv.StartNew(ctx)
	}
	if id := p.Flag("project"); id != "" {
		projects, err := a.projectManager(ctx)
		if err != nil {
			return err
		}
		details, err := projects.Details(ctx, id)
		if err != nil {
			return err
		}
		conv.EnterProject(ctx, details.Project)
	}

	mode := model.ResolveMode(search, image, len(atts) > 0)
	start := time.Now()
	reply, err := conv.Send(ctx, text, atts, mode)
	if err != nil {
		return err
	}

	st := conv.Snapshot()
	data := AskData{
		Title:      st.Title(),
		Model:      st.Model,
		Mode:       mode.String(),
		Response:   reply.Content,
		ImageURL:   reply.ImageURL,
		Sources:    reply.Sources,
		Documents:  reply.Attachments,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if st.Conversation != nil {
		data.ConversationID = st.Conversation.ID
	}

	return a.emit(args, data, func(w io.Writer) error {
		printReply(w, reply)
		if !args.Quiet {
			id := data.ConversationID
			if id == "" {
				id = "unsaved"
			}
			fmt.Fprintln(a.errOut, DimStyle.Render(fmt.Sprintf("%s | %s | %s | %.1fs",
				util.TruncateWidth(data.Title, 40), id, data.Model, time.Since(start).Seconds())))
		}
		return nil
	})
}

// printReply writes an assistant message for the terminal: the image URL
// or the text, then sources and documents.
func printReply(w io.Writer, m *model.Message) {
	if m.HasImage() {
		fmt.Fprintln(w, m.ImageURL)
	} else {
		fmt.Fprintln(w, m.Content)
	}
	if keys := m.SourceKeys(); len(keys) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Sources"))
		for _, k := range keys {
			s := m.Sources[k]
			fmt.Fprintf(w, "  [%s] %s %s\n", k, s.Title, DimStyle.Render(s.URL))
		}
	}
	if len(m.Attachments) > 0 {
		fmt.Fprintln(w, DimStyle.Render("documents: "+strings.Join(m.Attachments, ", ")))
	}
}
