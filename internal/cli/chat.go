// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - line-mode chat.
//
// Command: chat
// Aliases: repl
//
// A plain prompt for terminals where the full screen UI is unwanted. It
// continues this terminal's conversation, like ask.
//
// Interactive commands:
//
//	/help             list commands
//	/new              start a new conversation
//	/image            next message generates an image
//	/search           next message is a web search
//	/attach FILE...   stage documents for the next message
//	/detach NAME      drop a staged document
//	/model [NAME]     show or switch the model
//	/history [PAGE]   list conversations
//	/open ID          switch to a conversation
//	/share [ID]       create a share link
//	/quit             exit (also Ctrl+D, "exit", "quit")
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
	"github.com/jeranaias/parley/internal/viewer"
)

const replHelp = `Commands:
  /new              start a new conversation
  /image            next message generates an image
  /search           next message is a web search
  /attach FILE...   stage documents for the next message
  /detach NAME      drop a staged document
  /model [NAME]     show or switch the model
  /history [PAGE]   list conversations
  /open ID          switch to a conversation
  /share [ID]       create a share link
  /quit             exit`

// replSession holds what one chat prompt needs between lines.
type replSession struct {
	app  *App
	conv *conversation.Synchronizer
	out  io.Writer
	err  io.Writer

	// One-shot mode for the next message.
	image  bool
	search bool
}

func (a *App) runChat(ctx context.Context, args Args) error {
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	if args.Model != "" {
		if err := conv.SelectModel(args.Model); err != nil {
			return err
		}
	}
	r := &replSession{app: a, conv: conv, out: a.out, err: a.errOut}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	if dir, err := config.Dir(); err == nil {
		historyFile := filepath.Join(dir, "chat_history")
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if err := saveHistory(line, historyFile); err != nil {
				a.log.Debug("chat history not saved", zap.Error(err))
			}
		}()
	}

	if !args.Quiet {
		st := conv.Snapshot()
		fmt.Fprintf(a.out, "%s %s\n", TitleStyle.Render("parley"), DimStyle.Render("model "+st.Model+" | /help for commands"))
		if st.SessionID != "" {
			fmt.Fprintln(a.out, DimStyle.Render("continuing conversation "+st.SessionID))
		}
	}

	for {
		input, err := line.Prompt(r.prompt())
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal.
			fmt.Fprintln(a.out)
			return nil
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		quit, err := r.handleLine(ctx, input)
		if err != nil {
			fmt.Fprintf(r.err, "%s %v\n", ErrorStyle.Render("Error:"), err)
			if hint := Hint(err); hint != "" {
				fmt.Fprintln(r.err, DimStyle.Render(hint))
			}
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func saveHistory(line *liner.State, path string) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = line.WriteHistory(f)
	return err
}

// prompt is plain text; liner rejects control characters in prompts.
func (r *replSession) prompt() string {
	tag := ""
	switch {
	case r.search:
		tag = "search"
	case r.image:
		tag = "image"
	}
	if n := len(r.conv.Staged()); n > 0 {
		if tag != "" {
			tag += " "
		}
		tag += fmt.Sprintf("+%d", n)
	}
	if tag != "" {
		return "parley [" + tag + "]> "
	}
	return "parley> "
}

// handleLine runs one line of input. quit reports that the session should
// end.
func (r *replSession) handleLine(ctx context.Context, input string) (quit bool, err error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return false, nil
	case strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit"):
		return true, nil
	case strings.HasPrefix(input, "/"):
		return r.command(ctx, input)
	}
	return false, r.send(ctx, input)
}

func (r *replSession) send(ctx context.Context, text string) error {
	atts := r.conv.Staged()
	mode := model.ResolveMode(r.search, r.image, len(atts) > 0)
	r.search, r.image = false, false

	reply, err := r.conv.Send(ctx, text, atts, mode)
	if err != nil {
		return err
	}
	printReply(r.out, reply)
	return nil
}

func (r *replSession) command(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	name, rest := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/new", "/clear":
		r.conv.StartNew(ctx)
		r.image, r.search = false, false
		fmt.Fprintln(r.out, DimStyle.Render("New conversation."))

	case "/image":
		r.image, r.search = !r.image, false
		fmt.Fprintln(r.out, DimStyle.Render(onOff("image mode", r.image)))

	case "/search":
		if !r.search && !r.conv.SearchAvailable() {
			return false, conversation.ErrSearchUnavailable
		}
		r.search, r.image = !r.search, false
		fmt.Fprintln(r.out, DimStyle.Render(onOff("web search", r.search)))

	case "/attach":
		if len(rest) == 0 {
			return false, ErrMissingArgument("file", "/attach report.pdf")
		}
		atts, err := r.app.policy.LoadAll(rest)
		r.conv.Stage(atts...)
		for _, a := range atts {
			fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Attached"), a.Name)
		}
		return false, err

	case "/detach":
		if len(rest) == 0 {
			return false, ErrMissingArgument("name", "/detach report.pdf")
		}
		name := strings.Join(rest, " ")
		if !r.conv.Unstage(name) {
			return false, fmt.Errorf("nothing staged called %q", name)
		}
		fmt.Fprintf(r.out, "%s %s\n", DimStyle.Render("Detached"), name)

	case "/model":
		if len(rest) == 0 {
			current := r.conv.Model()
			for _, m := range r.conv.Models() {
				marker := "  "
				if m == current {
					marker = "* "
				}
				fmt.Fprintln(r.out, marker+m)
			}
			if len(r.conv.Models()) == 0 {
				fmt.Fprintln(r.out, "* "+current)
			}
			return false, nil
		}
		if err := r.conv.SelectModel(rest[0]); err != nil {
			return false, err
		}
		if r.search && !r.conv.SearchAvailable() {
			r.search = false
		}
		fmt.Fprintln(r.out, DimStyle.Render("Model "+rest[0]+"."))

	case "/history", "/ls":
		page := 1
		if len(rest) > 0 {
			n, err := ParseIntWithValidation(rest[0], "page")
			if err != nil {
				return false, err
			}
			page = n
		}
		if err := r.conv.RefreshRoster(ctx, page); err != nil {
			return false, err
		}
		r.printRoster()

	case "/open":
		if len(rest) == 0 {
			return false, ErrMissingArgument("conversation id", "/open ID")
		}
		c, err := r.conv.Open(ctx, rest[0])
		if err != nil {
			return false, err
		}
		r.image, r.search = false, false
		return false, viewer.Render(r.out, viewer.FromConversation(c), GetTerminalWidth())

	case "/share":
		id := r.conv.SessionID()
		if len(rest) > 0 {
			id = rest[0]
		}
		if id == "" {
			return false, errors.New("nothing to share yet; send a message first")
		}
		link, err := r.conv.Share(ctx, id)
		if err != nil {
			return false, err
		}
		if strings.HasPrefix(link, "/") {
			link = r.app.backend().BaseURL() + link
		}
		fmt.Fprintln(r.out, styles.RenderLink(link))

	default:
		return false, fmt.Errorf("%w: %s (try /help)", ErrUnknownCommand, name)
	}
	return false, nil
}

func (r *replSession) printRoster() {
	st := r.conv.Snapshot()
	active := st.ActiveID
	if active == "" {
		active = st.SessionID
	}
	if len(st.Roster) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No conversations yet."))
		return
	}
	for _, e := range st.Roster {
		id := e.ID
		if e.Placeholder() {
			id = "unsaved"
		}
		fmt.Fprintf(r.out, "%s%s  %s\n", activeMarker(e, active),
			util.TruncateWidth(util.SingleLine(e.Title), 50), DimStyle.Render(id))
	}
	if st.RosterPages > 1 {
		fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("page %d/%d", st.RosterPage, st.RosterPages)))
	}
}

func onOff(what string, on bool) string {
	if on {
		return what + " on for the next message"
	}
	return what + " off"
}
