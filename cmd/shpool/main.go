// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shayne/yargs"

	"github.com/jalberss/shpool/internal/client"
	"github.com/jalberss/shpool/internal/config"
	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/ui/styles"
)

func main() {
	if err := runCLI(); err != nil {
		reportCLIError(err)
		os.Exit(exitCode(err))
	}
}

type usageError struct {
	message string
}

func (e usageError) Error() string {
	return e.message
}

type silentError struct {
	err error
}

func (e silentError) Error() string {
	return e.err.Error()
}

func (e silentError) Unwrap() error {
	return e.err
}

func reportCLIError(err error) {
	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(os.Stderr, usageErr.message)
		return
	}
	var quietErr silentError
	if errors.As(err, &quietErr) {
		return
	}
	fmt.Fprintln(os.Stderr, styles.ForOutput(os.Stderr).Error.Render("shpool: "+describeError(err)))
}

// describeError leads with the failure kind so scripts can match on it.
func describeError(err error) string {
	var rejected *protocol.RejectedError
	if errors.As(err, &rejected) {
		return lead("rejected", err)
	}
	var transport *protocol.TransportError
	for _, kind := range []error{protocol.ErrOversized, protocol.ErrMalformed, protocol.ErrProtocolViolation} {
		if errors.Is(err, kind) {
			return lead(kind.Error(), err)
		}
	}
	if errors.As(err, &transport) {
		return lead("transport", err)
	}
	return err.Error()
}

func lead(kind string, err error) string {
	msg := err.Error()
	if strings.HasPrefix(msg, kind+":") || msg == kind {
		return msg
	}
	return kind + ": " + msg
}

func exitCode(err error) int {
	var usageErr usageError
	if errors.As(err, &usageErr) {
		return 2
	}
	return 1
}

func newUsageError(message string) error {
	return usageError{message: message}
}

func newSilentError(err error) error {
	if err == nil {
		return nil
	}
	return silentError{err: err}
}

var (
	version = "dev"
	commit  = ""
)

func runCLI() error {
	args := normalizeArgs(os.Args[1:])
	handlers := map[string]yargs.SubcommandHandler{
		"attach":  handleAttachCommand,
		"list":    handleListCommand,
		"detach":  handleDetachCommand,
		"kill":    handleKillCommand,
		"resize":  handleResizeCommand,
		"config":  handleConfigCommand,
		"version": handleVersionCommand,
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	if err := yargs.RunSubcommands(ctx, args, helpConfig, struct{}{}, handlers); err != nil {
		if errors.Is(err, yargs.ErrShown) {
			return nil
		}
		return err
	}
	return nil
}

var helpConfig = yargs.HelpConfig{
	Command: yargs.CommandInfo{
		Name:        "shpool",
		Description: "Persistent shell sessions you can detach from and reattach to",
		Examples: []string{
			"shpool attach main",
			"shpool list",
			"shpool detach",
			"shpool kill main",
			"shpool config --buf-size 8192",
			"shpool config --reset",
		},
	},
	SubCommands: map[string]yargs.SubCommandInfo{
		"attach": {
			Name:        "attach",
			Description: "Create or reattach to a named session",
			Usage:       "[--force-tty-size <rows>x<cols>] <name>",
			Examples: []string{
				"shpool attach main",
				"shpool attach --force-tty-size 40x120 build",
			},
		},
		"list": {
			Name:        "list",
			Description: "List sessions known to the daemon",
			Usage:       "[--json]",
		},
		"detach": {
			Name:        "detach",
			Description: "Detach clients from sessions, leaving the shells running",
			Usage:       "[<name>...]",
		},
		"kill": {
			Name:        "kill",
			Description: "Terminate sessions",
			Usage:       "[--yes] <name>...",
		},
		"resize": {
			Name:        "resize",
			Description: "Set the terminal size of a session",
			Usage:       "<name> <rows> <cols>",
			Hidden:      true,
		},
		"config": {
			Name:        "config",
			Description: "Show or update the local configuration",
		},
		"version": {
			Name:        "version",
			Description: "Show CLI version",
		},
	},
}

func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"--help"}
	}
	if args[0] == "--version" {
		return append([]string{"version"}, args[1:]...)
	}
	if args[0] == "help" {
		return rewriteHelpArgs(args[1:])
	}
	return args
}

func rewriteHelpArgs(args []string) []string {
	if len(args) == 0 || isHelpFlag(args[0]) {
		return []string{"--help"}
	}
	if isKnownCommand(args[0]) {
		return []string{args[0], "--help"}
	}
	return []string{"--help"}
}

func isKnownCommand(value string) bool {
	switch value {
	case "attach", "list", "detach", "kill", "resize", "config", "version":
		return true
	default:
		return false
	}
}

func isHelpFlag(value string) bool {
	switch strings.TrimSpace(value) {
	case "-h", "--help", "--help-llm":
		return true
	default:
		return false
	}
}

// wantsHelp reports a help flag anywhere before "--".
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if isHelpFlag(arg) {
			return true
		}
	}
	return false
}

// showHelp prints the subcommand's help through yargs.
func showHelp(command string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}]([]string{command, "--help"}, helpConfig)
	if err == nil || errors.Is(err, yargs.ErrShown) {
		return nil
	}
	return err
}

// commandArgs drops the subcommand name yargs passes through.
func commandArgs(command string, args []string) []string {
	if len(args) > 0 && args[0] == command {
		return args[1:]
	}
	return args
}

// session is everything a subcommand needs to reach the daemon.
type session struct {
	cfg    config.Config
	socket string
	opts   client.Options
	close  func()
}

func openSession() (*session, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	socket, err := cfg.SocketPath()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(os.Getenv(logEnv))
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		socket: socket,
		opts:   client.Options{Tunables: cfg.Tunables(), Logger: logger},
		close:  closeLog,
	}, nil
}

const logEnv = "SHPOOL_LOG"

// newLogger opens path for debug tracing. An empty path discards.
func newLogger(path string) (*slog.Logger, func(), error) {
	if strings.TrimSpace(path) == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	handler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler).With("pid", os.Getpid()), func() { _ = file.Close() }, nil
}

func handleVersionCommand(_ context.Context, args []string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, versionString())
	return nil
}

func versionString() string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		trimmed = "dev"
	}
	if strings.TrimSpace(commit) == "" {
		return trimmed
	}
	return fmt.Sprintf("%s (%s)", trimmed, strings.TrimSpace(commit))
}
