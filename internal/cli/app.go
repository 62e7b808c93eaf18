// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/api"
	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/conversation"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/project"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/viewer"
)

// Options override what App would otherwise take from the process.
type Options struct {
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer

	// Config is used as is; nil loads it from ConfigPath or the default
	// location.
	Config     *config.Config
	ConfigPath string

	// Logger replaces the one built from the [log] section.
	Logger *zap.Logger

	// Tokens replaces the token file source.
	Tokens auth.TokenSource

	// Tab names the session store partition; session.TabID when empty.
	Tab string
}

// App wires the configuration, the backend client and the synchronizer
// for one command. Collaborators that need a token are built on first use
// so commands such as config and version work signed out.
type App struct {
	cfg     *config.Config
	cfgPath string
	log     *zap.Logger
	ownLog  bool

	in          *os.File
	out, errOut io.Writer

	tab    string
	tokens auth.TokenSource
	policy attach.Policy

	client   *api.Client
	store    session.Store
	identity *auth.Identity
	conv     *conversation.Synchronizer
	projects *project.Manager
}

// NewApp loads the configuration and builds the logger for cmd. The
// terminal UI logs to the log file; every other command logs to stderr at
// warn level unless --verbose is given.
func NewApp(cmd Command, args Args, opts Options) (*App, error) {
	a := &App{
		in:     opts.Stdin,
		out:    opts.Stdout,
		errOut: opts.Stderr,
		tab:    opts.Tab,
		tokens: opts.Tokens,
	}
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	if a.tab == "" {
		a.tab = session.TabID()
	}

	a.cfgPath = opts.ConfigPath
	if a.cfgPath == "" {
		a.cfgPath = args.ConfigPath
	}
	if a.cfgPath == "" {
		p, err := config.Path()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		a.cfgPath = p
	}

	a.cfg = opts.Config
	if a.cfg == nil {
		cfg, err := config.LoadFromPath(a.cfgPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		a.cfg = cfg
	}
	if args.Model != "" {
		a.cfg.Chat.DefaultModel = args.Model
	}
	a.policy = attach.NewPolicy(a.cfg.MaxAttachmentBytes(), a.cfg.Attachments.Extensions)

	a.log = opts.Logger
	if a.log == nil {
		log, err := buildLogger(a.cfg, cmd, args.Verbose)
		if err != nil {
			return nil, fmt.Errorf("%w: logger: %w", errConfig, err)
		}
		a.log, a.ownLog = log, true
	}
	return a, nil
}

func buildLogger(cfg *config.Config, cmd Command, verbose bool) (*zap.Logger, error) {
	opts := logging.Options{
		Level:    "warn",
		Encoding: cfg.Log.Encoding,
		Output:   "stderr",
		Name:     "parley",
	}
	switch {
	case cmd == CmdTUI:
		opts.Level = cfg.Log.Level
		opts.Output = cfg.Log.File
	case verbose:
		opts.Level = "debug"
	}
	return logging.New(opts)
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the session store and flushes the logger.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	if a.ownLog {
		// Sync reports EINVAL for a stderr sink on Linux.
		_ = a.log.Sync()
	}
	return err
}

// =============================================================================
// LAZY COLLABORATORS
// =============================================================================

func (a *App) tokenSource() auth.TokenSource {
	if a.tokens == nil {
		a.tokens = auth.NewSource(a.cfg.Auth.TokenFile, a.cfg.Auth.RefreshCommand, a.log)
	}
	return a.tokens
}

// backend returns the API client.
func (a *App) backend() *api.Client {
	if a.client == nil {
		a.client = api.New(a.cfg.API.BaseURL, a.tokenSource()).
			WithTimeout(a.cfg.API.Timeout.Duration).
			WithRateLimit(a.cfg.API.RateLimit, a.cfg.API.Burst).
			WithMaxResponseBytes(a.cfg.API.MaxResponseBytes).
			WithLogger(a.log)
	}
	return a.client
}

// sessionStore opens this terminal's session store.
func (a *App) sessionStore() (session.Store, error) {
	if a.store == nil {
		s, err := session.Open(a.cfg.Session.Backend, a.cfg.Session.Path, a.tab, a.cfg.Session.IdleTimeout.Duration, a.log)
		if err != nil {
			return nil, fmt.Errorf("%w: session store: %w", errConfig, err)
		}
		a.store = s
	}
	return a.store, nil
}

// whoami reads the identity from the current token. An expired token is
// refreshed once when a refresh command is configured.
func (a *App) whoami(ctx context.Context) (*auth.Identity, error) {
	if a.identity != nil {
		return a.identity, nil
	}
	tokens := a.tokenSource()
	token, err := tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	id, err := auth.ParseIdentity(token)
	if errors.Is(err, auth.ErrExpiredToken) {
		a.log.Info("token expired, refreshing")
		if token, err = tokens.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", auth.ErrExpiredToken, err)
		}
		id, err = auth.ParseIdentity(token)
	}
	if err != nil {
		return nil, err
	}
	a.identity = id
	return id, nil
}

// signIn builds the synchronizer and the project manager for the token's
// user.
func (a *App) signIn(ctx context.Context) (*conversation.Synchronizer, error) {
	if a.conv != nil {
		return a.conv, nil
	}
	id, err := a.whoami(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.sessionStore()
	if err != nil {
		return nil, err
	}

	// A different user in this terminal must not continue the previous
	// user's conversation.
	if cached, err := store.Get(ctx, session.KeyUserID); err == nil && cached != "" && cached != id.UserID {
		a.log.Info("signed-in user changed, clearing session")
		if err := store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
	}

	conv, err := conversation.New(ctx, conversation.Deps{
		Backend:      a.backend(),
		Session:      store,
		Logger:       a.log,
		UserID:       id.UserID,
		Models:       a.cfg.Chat.Models,
		SearchModels: a.cfg.Chat.SearchModels,
		DefaultModel: a.cfg.Chat.DefaultModel,
		PageSize:     a.cfg.Chat.RosterPageSize,
	})
	if err != nil {
		return nil, err
	}
	a.conv = conv
	a.projects = project.NewManager(a.backend(), id.UserID, a.policy, a.log)
	return conv, nil
}

// projectManager returns the project manager, signing in first.
func (a *App) projectManager(ctx context.Context) (*project.Manager, error) {
	if _, err := a.signIn(ctx); err != nil {
		return nil, err
	}
	return a.projects, nil
}

// sharedViewer returns a viewer over the public share endpoint.
func (a *App) sharedViewer() *viewer.Viewer {
	return viewer.New(a.backend(), a.log)
}

// =============================================================================
// DISPATCH
// =============================================================================

// Execute runs cmd with the process streams and returns its error.
func Execute(ctx context.Context, cmd Command, args Args) error {
	if cmd == CmdVersion || cmd == CmdHelp {
		return runStatic(os.Stdout, cmd, args)
	}
	app, err := NewApp(cmd, args, Options{})
	if err != nil {
		return err
	}
	return multierr.Append(app.Run(ctx, cmd, args), app.Close())
}

func runStatic(w io.Writer, cmd Command, args Args) error {
	switch cmd {
	case CmdVersion:
		if args.JSON {
			return NewJSONResponse("version", versionData()).Write(w)
		}
		PrintVersion(w)
	case CmdHelp:
		PrintUsage(w)
	}
	return nil
}

// Run executes one command.
func (a *App) Run(ctx context.Context, cmd Command, args Args) error {
	a.log.Debug("running command", zap.String("command", cmd.String()))
	switch cmd {
	case CmdTUI:
		return a.runTUI(ctx)
	case CmdChat:
		return a.runChat(ctx, args)
	case CmdAsk:
		return a.runAsk(ctx, args)
	case CmdHistory:
		return a.runHistory(ctx, args)
	case CmdShow:
		return a.runShow(ctx, args)
	case CmdDelete:
		return a.runDelete(ctx, args)
	case CmdRename:
		return a.runRename(ctx, args)
	case CmdShare:
		return a.runShare(ctx, args)
	case CmdShared:
		return a.runShared(ctx, args)
	case CmdExport:
		return a.runExport(ctx, args)
	case CmdProjects:
		return a.runProjects(ctx, args)
	case CmdLogin:
		return a.runLogin(ctx, args)
	case CmdLogout:
		return a.runLogout(ctx, args)
	case CmdWhoami:
		return a.runWhoami(ctx, args)
	case CmdNew:
		return a.runNew(ctx, args)
	case CmdConfig:
		return a.runConfig(args)
	case CmdVersion, CmdHelp:
		return runStatic(a.out, cmd, args)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args.Name)
	}
}

// emit writes data as JSON when --json is set, and otherwise calls human.
func (a *App) emit(args Args, data any, human func(w io.Writer) error) error {
	if args.JSON {
		return NewJSONResponse(args.Name, data).Write(a.out)
	}
	return human(a.out)
}

// notice prints a status line unless --quiet or --json is set.
func (a *App) notice(args Args, format string, v ...any) {
	if args.Quiet || args.JSON {
		return
	}
	fmt.Fprintf(a.out, format+"\n", v...)
}
