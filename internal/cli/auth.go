// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// runLogin stores a token after checking its claims and, unless
// --no-verify is given, that the backend accepts it.
func (a *App) runLogin(ctx context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	token := p.Flag("token")
	if token == "" {
		token = p.Positional(0)
	}
	if token == "" {
		var err error
		token, err = ReadSecret(a.in, a.errOut, "Paste access token: ")
		if errors.Is(err, errNoInput) {
			return ErrMissingArgument("token", "parley login --token TOKEN")
		}
		if err != nil {
			return err
		}
	}
	token = strings.TrimSpace(token)

	id, err := auth.ParseIdentity(token)
	if err != nil {
		return err
	}
	if !p.BoolFlag("no-verify") {
		probe := api.New(a.cfg.API.BaseURL, auth.NewStaticSource(token)).
			WithTimeout(a.cfg.API.Timeout.Duration).
			WithLogger(a.log)
		if err := probe.VerifyLogin(ctx); err != nil {
			return fmt.Errorf("backend rejected the token: %w", err)
		}
	}
	if _, err := auth.Login(a.cfg.Auth.TokenFile, token); err != nil {
		return err
	}
	a.identity = id
	a.log.Info("signed in", zap.String("user_id", id.UserID))

	if os.Getenv(auth.EnvToken) != "" {
		fmt.Fprintln(a.errOut, WarningStyle.Render(auth.EnvToken+" is set and takes precedence over the stored token."))
	}
	return a.emit(args, whoamiData(id, a.cfg.API.BaseURL, ""), func(w io.Writer) error {
		_, err := fmt.Fprintln(w, styles.RenderSuccess("Signed in as "+displayName(id)))
		return err
	})
}

// runLogout removes the token and clears this terminal's session.
func (a *App) runLogout(ctx context.Context, args Args) error {
	store, err := a.sessionStore()
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil && !errors.Is(err, session.ErrClosed) {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := auth.Logout(a.cfg.Auth.TokenFile); err != nil {
		return err
	}
	a.notice(args, "Signed out.")
	return nil
}

func (a *App) runWhoami(ctx context.Context, args Args) error {
	id, err := a.whoami(ctx)
	if err != nil {
		return err
	}
	sessionID := ""
	if store, err := a.sessionStore(); err == nil {
		sessionID, _ = store.Get(ctx, session.KeyConversationID)
	}
	data := whoamiData(id, a.cfg.API.BaseURL, sessionID)
	return a.emit(args, data, func(w io.Writer) error {
		fmt.Fprintln(w, RenderLabel("user")+ValueStyle.Render(displayName(id)))
		fmt.Fprintln(w, RenderLabel("user id")+ValueStyle.Render(id.UserID))
		if !id.ExpiresAt.IsZero() {
			fmt.Fprintln(w, RenderLabel("expires")+ValueStyle.Render(
				fmt.Sprintf("%s (in %s)", id.ExpiresAt.Local().Format("2006-01-02 15:04"), time.Until(id.ExpiresAt).Round(time.Minute))))
		}
		fmt.Fprintln(w, RenderLabel("backend")+ValueStyle.Render(data.Backend))
		if sessionID != "" {
			fmt.Fprintln(w, RenderLabel("conversation")+ValueStyle.Render(sessionID))
		}
		return nil
	})
}

func whoamiData(id *auth.Identity, backend, sessionID string) WhoamiData {
	return WhoamiData{
		UserID:    id.UserID,
		Name:      id.Name,
		Email:     id.Email,
		ExpiresAt: id.ExpiresAt,
		Backend:   backend,
		SessionID: sessionID,
	}
}

func displayName(id *auth.Identity) string {
	switch {
	case id.Name != "" && id.Email != "":
		return fmt.Sprintf("%s <%s>", id.Name, id.Email)
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	}
	return id.UserID
}
