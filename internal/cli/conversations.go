// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
	"github.com/jeranaias/parley/internal/viewer"
)

// =============================================================================
// HISTORY
// =============================================================================

func (a *App) runHistory(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	page, err := p.FlagIntOrDefault("page", 1)
	if err != nil {
		return err
	}
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	if err := conv.RefreshRoster(ctx, page); err != nil {
		return err
	}

	st := conv.Snapshot()
	active := st.ActiveID
	if active == "" {
		active = st.SessionID
	}
	data := HistoryData{
		Page:          st.RosterPage,
		Pages:         st.RosterPages,
		ActiveID:      active,
		Conversations: st.Roster.WithoutPlaceholder(),
	}
	return a.emit(args, data, func(w io.Writer) error {
		printRoster(w, data)
		return nil
	})
}

func printRoster(w io.Writer, h HistoryData) {
	if len(h.Conversations) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet. Start one with: parley ask \"hello\""))
		return
	}
	width := GetTerminalWidth()
	titleWidth := max(width-50, 20)
	for _, e := range h.Conversations {
		marker := "  "
		title := util.PadWidth(util.TruncateWidth(util.SingleLine(e.Title), titleWidth), titleWidth)
		if e.ID == h.ActiveID {
			marker = "* "
			title = ActiveStyle.Render(title)
		}
		when := e.UpdatedAt
		if when.IsZero() {
			when = e.CreatedAt
		}
		fmt.Fprintf(w, "%s%s  %s  %s\n", marker, title,
			DimStyle.Render(when.Local().Format("2006-01-02 15:04")), e.ID)
	}
	if h.Pages > 1 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("page %d/%d (--page N)", h.Page, h.Pages)))
	}
}

// =============================================================================
// SHOW / EXPORT
// =============================================================================

// loadView fetches a conversation for display without making it active.
func (a *App) loadView(ctx context.Context, id string) (*viewer.View, error) {
	conv, err := a.signIn(ctx)
	if err != nil {
		return nil, err
	}
	detail, err := a.backend().FetchConversation(ctx, id, conv.UserID())
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	return viewer.FromConversation(detail.Conversation(id)), nil
}

func (a *App) runShow(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	id := p.Positional(0)
	if id == "" {
		return ErrMissingArgument("conversation id", "parley show ID")
	}
	v, err := a.loadView(ctx, id)
	if err != nil {
		return err
	}
	return a.emit(args, v, func(w io.Writer) error {
		return viewer.Render(w, v, GetTerminalWidth())
	})
}

func (a *App) runShared(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	id := shareID(p.Positional(0))
	if id == "" {
		return ErrMissingArgument("share id", "parley shared SHARE_ID")
	}
	v, err := a.sharedViewer().Load(ctx, id)
	if err != nil {
		return err
	}
	return a.emit(args, v, func(w io.Writer) error {
		return viewer.Render(w, v, GetTerminalWidth())
	})
}

// shareID accepts a bare id or a share link ending in /share/ID.
func shareID(arg string) string {
	arg = strings.TrimSpace(arg)
	if u, err := url.Parse(arg); err == nil && u.Path != "" && strings.Contains(u.Path, "/share/") {
		return path.Base(strings.TrimRight(u.Path, "/"))
	}
	return arg
}

func (a *App) runExport(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	id := p.Positional(0)
	if id == "" {
		return ErrMissingArgument("conversation id", "parley export ID --format markdown")
	}
	format := p.FlagOrDefault("format", "markdown")
	opts := export.DefaultOptions()
	opts.IncludeMetadata = !p.BoolFlag("no-meta")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return ErrUnsupportedFormat(format, export.Formats())
	}

	var v *viewer.View
	if p.BoolFlag("shared") {
		v, err = a.sharedViewer().Load(ctx, shareID(id))
	} else {
		v, err = a.loadView(ctx, id)
	}
	if err != nil {
		return err
	}

	out := p.Flag("out")
	if out == "" || out == "-" {
		content, err := exporter.Export(v)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		_, err = a.out.Write(content)
		return err
	}

	written := out
	if isDir(out) {
		opts.OutputDir = out
		if written, err = export.ToFile(v, exporter, opts); err != nil {
			return err
		}
	} else if err := export.WriteFile(v, exporter, out); err != nil {
		return err
	}
	a.notice(args, "%s %s", SuccessStyle.Render("Exported"), written)
	return nil
}

// isDir reports whether out names a directory, existing or spelled with
// a trailing separator.
func isDir(out string) bool {
	if strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(os.PathSeparator)) {
		return true
	}
	info, err := os.Stat(out)
	return err == nil && info.IsDir()
}

// =============================================================================
// MUTATIONS
// =============================================================================

func (a *App) runDelete(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	if p.BoolFlag("all") {
		res, err := a.backend().ClearConversations(ctx)
		if err != nil {
			return err
		}
		conv.StartNew(ctx)
		a.notice(args, "%s %d conversations", SuccessStyle.Render("Deleted"), res.ChatsDeleted)
		return nil
	}

	ids := p.PositionalFrom(0)
	if len(ids) == 0 {
		return ErrMissingArgument("conversation id", "parley delete ID [ID...]")
	}
	for _, id := range ids {
		if err := conv.Delete(ctx, id); err != nil {
			return err
		}
		a.notice(args, "%s %s", SuccessStyle.Render("Deleted"), id)
	}
	return nil
}

func (a *App) runRename(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	id, title := p.Positional(0), p.JoinFrom(1)
	if id == "" || title == "" {
		return ErrMissingArgument("id and title", `parley rename ID "New title"`)
	}
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	if err := conv.Rename(ctx, id, title); err != nil {
		return err
	}
	a.notice(args, "%s %s to %q", SuccessStyle.Render("Renamed"), id, title)
	return nil
}

func (a *App) runShare(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	id := p.Positional(0)
	if id == "" {
		id = conv.SessionID()
	}
	if id == "" {
		return ErrMissingArgument("conversation id", "parley share ID")
	}
	link, err := conv.Share(ctx, id)
	if err != nil {
		return err
	}
	if strings.HasPrefix(link, "/") {
		link = a.backend().BaseURL() + link
	}
	data := ShareData{ConversationID: id, URL: link}
	return a.emit(args, data, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, styles.RenderLink(link))
		return err
	})
}

// runNew forgets this terminal's conversation so the next ask starts a
// new one.
func (a *App) runNew(ctx context.Context, args Args) error {
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	previous := conv.SessionID()
	conv.StartNew(ctx)
	if previous != "" {
		a.notice(args, "%s", styles.RenderInfo("Left conversation "+previous+"; the next message starts a new one."))
	} else {
		a.notice(args, "%s", styles.RenderInfo("The next message starts a new conversation."))
	}
	return nil
}

// activeMarker labels roster entries in the REPL listing.
func activeMarker(e model.RosterEntry, active string) string {
	switch {
	case e.Placeholder():
		return "+ "
	case e.ID == active:
		return "* "
	default:
		return "  "
	}
}
