// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shayne/yargs"

	"github.com/jalberss/shpool/internal/client"
	"github.com/jalberss/shpool/internal/config"
	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/tty"
	"github.com/jalberss/shpool/internal/ui/prompts"
	"github.com/jalberss/shpool/internal/ui/render"
	"github.com/jalberss/shpool/internal/ui/styles"
)

const sessionNameEnv = "SHPOOL_SESSION_NAME"

type listFlags struct {
	JSON bool `flag:"json" help:"print sessions as JSON"`
}

type killFlags struct {
	Yes bool `flag:"yes" short:"y" help:"skip the confirmation prompt"`
}

type resizeArgs struct {
	Name string `pos:"0" help:"session name"`
	Rows string `pos:"1" help:"rows"`
	Cols string `pos:"2" help:"columns"`
}

type configFlags struct {
	Socket     string   `flag:"socket" help:"set the daemon socket path"`
	BufSize    int      `flag:"buf-size" help:"set the relay buffer size in bytes"`
	PipePollMs int      `flag:"pipe-poll-ms" help:"set the relay poll interval in milliseconds"`
	ForwardEnv []string `flag:"forward-env" help:"environment variable to forward on attach (repeatable)"`
	Reset      bool     `flag:"reset" help:"delete the config file and fall back to defaults"`
}

func handleListCommand(ctx context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, listFlags, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	reply, err := client.List(ctx, s.socket, s.opts)
	if err != nil {
		return err
	}
	if result.SubCommandFlags.JSON {
		return writeSessionsJSON(os.Stdout, reply.Sessions)
	}
	fmt.Fprint(os.Stdout, render.SessionTable(reply.Sessions, styles.ForOutput(os.Stdout)))
	return nil
}

type sessionJSON struct {
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

func writeSessionsJSON(w io.Writer, sessions []protocol.Session) error {
	out := make([]sessionJSON, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionJSON{Name: session.Name, StartedAt: session.StartedAt().UTC()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func handleDetachCommand(ctx context.Context, args []string) error {
	if wantsHelp(args) {
		return showHelp("detach")
	}
	parsed, err := yargs.ParseFlags[struct{}](commandArgs("detach", args))
	if err != nil {
		return err
	}
	names, err := detachTargets(parsed.Args, os.Getenv(sessionNameEnv))
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	reply, err := client.Detach(ctx, s.socket, s.opts, names)
	if err != nil {
		return err
	}
	if warnings := render.NotFound("detached", reply.NotFoundSessions, reply.NotAttachedSessions, styles.ForOutput(os.Stderr)); warnings != "" {
		fmt.Fprint(os.Stderr, warnings)
		return newSilentError(errors.New("some sessions were not detached"))
	}
	return nil
}

// detachTargets defaults to the session this shell runs inside.
func detachTargets(names []string, current string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	if strings.TrimSpace(current) == "" {
		return nil, newUsageError("no session named and " + sessionNameEnv + " is not set\nUsage: shpool detach [<name>...]")
	}
	return []string{current}, nil
}

func handleKillCommand(ctx context.Context, args []string) error {
	if wantsHelp(args) {
		return showHelp("kill")
	}
	parsed, err := yargs.ParseFlags[killFlags](commandArgs("kill", args))
	if err != nil {
		return err
	}
	names := parsed.Args
	if len(names) == 0 {
		if current := os.Getenv(sessionNameEnv); current != "" {
			names = []string{current}
		}
	}
	if len(names) == 0 {
		return newUsageError("Usage: shpool kill [--yes] <name>...")
	}
	if !parsed.Flags.Yes && tty.IsTerminal(os.Stdin) && tty.IsTerminal(os.Stdout) {
		confirmed, err := prompts.ConfirmKill(os.Stdin, os.Stdout, names)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !confirmed {
			fmt.Fprintln(os.Stdout, "Kill cancelled.")
			return nil
		}
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	reply, err := client.Kill(ctx, s.socket, s.opts, names)
	if err != nil {
		return err
	}
	if warnings := render.NotFound("killed", reply.NotFoundSessions, nil, styles.ForOutput(os.Stderr)); warnings != "" {
		fmt.Fprint(os.Stderr, warnings)
		return newSilentError(errors.New("some sessions were not killed"))
	}
	return nil
}

func handleResizeCommand(ctx context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, struct{}, resizeArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	size, err := parseRowsCols(result.Args.Rows, result.Args.Cols)
	if err != nil {
		return newUsageError(err.Error() + "\nUsage: shpool resize <name> <rows> <cols>")
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	reply, err := client.Resize(ctx, s.socket, s.opts, result.Args.Name, size)
	if err != nil {
		return err
	}
	if reply.Kind != protocol.SessionResized {
		return fmt.Errorf("resize %s: %s", result.Args.Name, reply.Kind)
	}
	return nil
}

func parseRowsCols(rows, cols string) (tty.Size, error) {
	r, err := strconv.ParseUint(strings.TrimSpace(rows), 10, 16)
	if err != nil || r == 0 {
		return tty.Size{}, fmt.Errorf("invalid rows %q", rows)
	}
	c, err := strconv.ParseUint(strings.TrimSpace(cols), 10, 16)
	if err != nil || c == 0 {
		return tty.Size{}, fmt.Errorf("invalid cols %q", cols)
	}
	return tty.Size{Rows: uint16(r), Cols: uint16(c)}, nil
}

func handleConfigCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, configFlags, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}

	flags := result.SubCommandFlags
	if flags.Reset {
		if err := checkResetFlags(flags); err != nil {
			return err
		}
		return resetConfig(os.Stdout)
	}
	cfg, path, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	updated, err := applyConfigFlags(&cfg, flags)
	if err != nil {
		return err
	}
	if !updated {
		return showConfig(cfg, path)
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "wrote config to %s\n", path)
	return nil
}

// checkResetFlags refuses --reset alongside settings it would discard.
func checkResetFlags(flags configFlags) error {
	if flags.Socket != "" || flags.BufSize != 0 || flags.PipePollMs != 0 || len(flags.ForwardEnv) > 0 {
		return newUsageError("--reset cannot be combined with other config flags")
	}
	return nil
}

func resetConfig(out io.Writer) error {
	if err := config.RemoveConfigFile(); err != nil {
		return fmt.Errorf("failed to remove config: %w", err)
	}
	fmt.Fprintln(out, "config reset to defaults")
	return nil
}

func applyConfigFlags(cfg *config.Config, flags configFlags) (bool, error) {
	updated := false
	if socket := strings.TrimSpace(flags.Socket); socket != "" {
		cfg.Socket = socket
		updated = true
	}
	if flags.BufSize != 0 {
		if flags.BufSize < 0 {
			return false, newUsageError("--buf-size must be positive")
		}
		cfg.BufSize = flags.BufSize
		updated = true
	}
	if flags.PipePollMs != 0 {
		if flags.PipePollMs < 0 {
			return false, newUsageError("--pipe-poll-ms must be positive")
		}
		cfg.PipePollMs = flags.PipePollMs
		updated = true
	}
	if len(flags.ForwardEnv) > 0 {
		keys := make([]string, 0, len(flags.ForwardEnv))
		for _, key := range flags.ForwardEnv {
			key = strings.TrimSpace(key)
			if key == "" || strings.Contains(key, "=") {
				return false, newUsageError(fmt.Sprintf("invalid environment variable name %q", key))
			}
			keys = append(keys, key)
		}
		cfg.ForwardEnv = keys
		updated = true
	}
	return updated, nil
}

func showConfig(cfg config.Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}
	socket, err := cfg.SocketPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Config path: %s\nSocket: %s\n%s\n", path, socket, string(data))
	return nil
}
