// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - command table, global flags and usage text.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is a top-level parley command.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdHistory
	CmdShow
	CmdDelete
	CmdRename
	CmdShare
	CmdShared
	CmdExport
	CmdProjects
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdNew
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdTUI:      "tui",
	CmdChat:     "chat",
	CmdAsk:      "ask",
	CmdHistory:  "history",
	CmdShow:     "show",
	CmdDelete:   "delete",
	CmdRename:   "rename",
	CmdShare:    "share",
	CmdShared:   "shared",
	CmdExport:   "export",
	CmdProjects: "projects",
	CmdLogin:    "login",
	CmdLogout:   "logout",
	CmdWhoami:   "whoami",
	CmdNew:      "new",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
	CmdUnknown:  "unknown",
}

// String returns the command name as typed.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// commandAliases maps every accepted spelling to its command.
var commandAliases = map[string]Command{
	"tui":       CmdTUI,
	"chat":      CmdChat,
	"repl":      CmdChat,
	"ask":       CmdAsk,
	"a":         CmdAsk,
	"history":   CmdHistory,
	"ls":        CmdHistory,
	"list":      CmdHistory,
	"show":      CmdShow,
	"cat":       CmdShow,
	"delete":    CmdDelete,
	"rm":        CmdDelete,
	"rename":    CmdRename,
	"mv":        CmdRename,
	"share":     CmdShare,
	"shared":    CmdShared,
	"view":      CmdShared,
	"export":    CmdExport,
	"projects":  CmdProjects,
	"project":   CmdProjects,
	"login":     CmdLogin,
	"logout":    CmdLogout,
	"whoami":    CmdWhoami,
	"new":       CmdNew,
	"config":    CmdConfig,
	"version":   CmdVersion,
	"--version": CmdVersion,
	"help":      CmdHelp,
	"--help":    CmdHelp,
	"-h":        CmdHelp,
}

// Args holds the parsed command line.
type Args struct {
	// Name is the command as typed; used in error output.
	Name string

	// Global flags, accepted anywhere before "--".
	JSON       bool
	Quiet      bool
	Verbose    bool
	Model      string
	ConfigPath string

	// Rest is everything after the command, for the command's ArgParser.
	Rest []string
}

const usageText = `parley - terminal client for the chat assistant

Usage:
  parley                            Start the terminal UI (default)
  parley chat                       Line-oriented chat in this terminal
  parley ask "text" [flags]         Send one message and print the reply
  parley history [--page N]         List conversations
  parley show ID                    Print a conversation
  parley delete ID                  Delete a conversation
  parley rename ID "title"          Rename a conversation
  parley share ID                   Create a public link
  parley shared SHARE_ID|URL        Print a shared conversation
  parley export ID [flags]          Export a conversation
  parley projects [subcommand]      Project knowledge bases
  parley new                        Start a new conversation in this terminal
  parley login [--token T]          Store an access token
  parley logout                     Remove the token and this terminal's session
  parley whoami                     Show the signed-in user
  parley config [subcommand]        Configuration
  parley version                    Version information

Ask flags:
  --image                           Generate an image
  --search                          Answer with web search (search models only)
  --mode text|image|document|search Send mode, instead of --image or --search
  -f, --file PATH                   Attach a document (repeatable)
  -m, --model NAME                  Model for this message
  -p, --project ID                  Send inside a project
  --new                             Start a new conversation first
  --stdin                           Read the message from stdin

Export flags:
  --format markdown|json|html       Output format (default: markdown)
  -o, --out PATH                    File or directory (default: stdout)
  --shared                          ID is a share id
  --no-meta                         Leave out the metadata header

Project subcommands:
  parley projects list
  parley projects create --name NAME --goal GOAL [--instructions TEXT]
  parley projects show ID
  parley projects upload ID FILE... [-n NAME ...]
  parley projects instructions ID "text"

Config subcommands:
  parley config show                Print the effective configuration
  parley config get KEY             Print one value (dot keys: api.base_url)
  parley config set KEY VALUE       Change one value in the config file
  parley config path                Print the config file location
  parley config keys                List the keys

Global flags:
  --json                            Machine-readable output
  -q, --quiet                       Only print results
  -v, --verbose                     Debug logging to stderr
  -m, --model NAME                  Override chat.default_model
  --config PATH                     Use another config file

Chat commands are entered as /help inside "parley chat" and the terminal UI.

Version: %s
`

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "parley version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func versionData() VersionData {
	return VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs strips the global flags from argv and identifies the command.
// No command starts the terminal UI.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		args.Name = CmdTUI.String()
		return CmdTUI, args
	}

	name := strings.ToLower(remaining[0])
	args.Name = name
	args.Rest = remaining[1:]
	if cmd, ok := commandAliases[name]; ok {
		return cmd, args
	}
	return CmdUnknown, args
}

func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(argv))
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			remaining = append(remaining, argv[i:]...)
			break
		}
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--json":
			args.JSON = true
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-m", "--model", "--config":
			if !hasValue {
				if i+1 >= len(argv) {
					remaining = append(remaining, arg)
					continue
				}
				i++
				value = argv[i]
			}
			if name == "--config" {
				args.ConfigPath = value
			} else {
				args.Model = value
			}
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}
