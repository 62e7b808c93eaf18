// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/ui/chat"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// runTUI starts the full screen chat. When the token file changes to
// another user, or is removed, the synchronizer is signed out and the
// program exits.
func (a *App) runTUI(ctx context.Context) error {
	conv, err := a.signIn(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := chat.New(chat.Deps{
		Conversation: conv,
		Projects:     a.projects,
		Policy:       a.policy,
		Theme:        styles.NewTheme(),
		Logger:       a.log,
		Timeout:      a.cfg.API.Timeout.Duration,
	})
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	signedOut := make(chan struct{}, 1)
	if fs, ok := a.tokens.(*auth.FileSource); ok {
		if err := fs.Watch(ctx); err != nil {
			a.log.Warn("token watch disabled", zap.Error(err))
		} else {
			go a.followToken(ctx, fs, conv, p, signedOut)
		}
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	select {
	case <-signedOut:
		fmt.Fprintln(a.errOut, styles.RenderWarning("Signed out: the stored token changed."))
	default:
	}
	return nil
}

// followToken signs out when the token no longer names the current user.
func (a *App) followToken(ctx context.Context, fs *auth.FileSource, conv *conversation.Synchronizer, p *tea.Program, signedOut chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fs.Changed():
		}
		token, err := fs.Token(ctx)
		if err == nil {
			if id, perr := auth.ParseIdentity(token); perr == nil && id.UserID == conv.UserID() {
				a.log.Debug("token rotated for the same user")
				continue
			}
		}
		a.log.Info("token changed to another user, signing out")
		if err := conv.SignOut(ctx); err != nil {
			a.log.Warn("sign out failed", zap.Error(err))
		}
		signedOut <- struct{}{}
		p.Quit()
		return
	}
}
