// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jalberss/shpool/internal/config"
	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/tty"
)

func TestNormalizeArgs(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{nil, []string{"--help"}},
		{[]string{"--version"}, []string{"version"}},
		{[]string{"help"}, []string{"--help"}},
		{[]string{"help", "attach"}, []string{"attach", "--help"}},
		{[]string{"help", "bogus"}, []string{"--help"}},
		{[]string{"list", "--json"}, []string{"list", "--json"}},
	}
	for _, tc := range cases {
		if got := normalizeArgs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("normalizeArgs(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestWantsHelp(t *testing.T) {
	if !wantsHelp([]string{"kill", "a", "-h"}) {
		t.Fatal("expected -h to request help")
	}
	if wantsHelp([]string{"kill", "--", "--help"}) {
		t.Fatal("arguments after -- are names, not flags")
	}
}

func TestCommandArgs(t *testing.T) {
	if got := commandArgs("kill", []string{"kill", "a"}); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected %v", got)
	}
	if got := commandArgs("kill", []string{"a"}); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected %v", got)
	}
}

func TestDetachTargets(t *testing.T) {
	got, err := detachTargets(nil, "main")
	if err != nil || !reflect.DeepEqual(got, []string{"main"}) {
		t.Fatalf("expected current session, got %v %v", got, err)
	}
	got, err = detachTargets([]string{"a", "b"}, "main")
	if err != nil || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("explicit names must win, got %v %v", got, err)
	}
	_, err = detachTargets(nil, "")
	var usageErr usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestParseRowsCols(t *testing.T) {
	size, err := parseRowsCols("40", " 120")
	if err != nil {
		t.Fatalf("parseRowsCols: %v", err)
	}
	if size != (tty.Size{Rows: 40, Cols: 120}) {
		t.Fatalf("unexpected size %v", size)
	}
	for _, bad := range [][2]string{{"0", "80"}, {"24", "x"}, {"70000", "80"}, {"-1", "80"}} {
		if _, err := parseRowsCols(bad[0], bad[1]); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestApplyConfigFlags(t *testing.T) {
	cfg := config.Config{}
	updated, err := applyConfigFlags(&cfg, configFlags{})
	if err != nil || updated {
		t.Fatalf("empty flags must not update: %v %v", updated, err)
	}
	updated, err = applyConfigFlags(&cfg, configFlags{
		Socket:     " /tmp/s.sock ",
		BufSize:    8192,
		ForwardEnv: []string{"TERM", " COLORTERM "},
	})
	if err != nil || !updated {
		t.Fatalf("expected update: %v %v", updated, err)
	}
	want := config.Config{Socket: "/tmp/s.sock", BufSize: 8192, ForwardEnv: []string{"TERM", "COLORTERM"}}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("got %+v want %+v", cfg, want)
	}
	if _, err := applyConfigFlags(&cfg, configFlags{ForwardEnv: []string{"A=B"}}); err == nil {
		t.Fatal("expected invalid variable name to be rejected")
	}
	if _, err := applyConfigFlags(&cfg, configFlags{BufSize: -4}); err == nil {
		t.Fatal("expected negative buffer size to be rejected")
	}
}

func TestWriteSessionsJSON(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := writeSessionsJSON(&buf, []protocol.Session{{Name: "main", StartedAtUnixMs: started.UnixMilli()}})
	if err != nil {
		t.Fatalf("writeSessionsJSON: %v", err)
	}
	var decoded []sessionJSON
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "main" || !decoded[0].StartedAt.Equal(started) {
		t.Fatalf("unexpected output %s", buf.String())
	}

	buf.Reset()
	if err := writeSessionsJSON(&buf, nil); err != nil {
		t.Fatalf("writeSessionsJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		err    error
		prefix string
	}{
		{&protocol.RejectedError{Status: protocol.AttachStatus{Code: protocol.AttachBusy}}, "rejected: session is busy"},
		{fmt.Errorf("reading attach reply: %w", &protocol.RejectedError{Status: protocol.AttachStatus{Code: protocol.AttachForbidden, Detail: "uid"}}), "rejected: reading attach reply: forbidden: uid"},
		{fmt.Errorf("reading: %w", protocol.ErrOversized), "oversized frame: "},
		{fmt.Errorf("reading: %w", protocol.ErrMalformed), "malformed message: "},
		{protocol.ErrProtocolViolation, "protocol violation"},
		{&protocol.TransportError{Op: "dial", Err: errors.New("refused")}, "transport: dial: refused"},
		{fmt.Errorf("listing sessions: %w", &protocol.TransportError{Op: "dial", Err: errors.New("refused")}), "transport: listing sessions"},
		{errors.New("plain"), "plain"},
	}
	for _, tc := range cases {
		if got := describeError(tc.err); !strings.HasPrefix(got, tc.prefix) {
			t.Fatalf("describeError(%v)=%q want prefix %q", tc.err, got, tc.prefix)
		}
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(newUsageError("bad")) != 2 {
		t.Fatal("usage errors exit 2")
	}
	if exitCode(newSilentError(errors.New("x"))) != 1 {
		t.Fatal("other errors exit 1")
	}
}

func TestNewLoggerDiscardsWithoutPath(t *testing.T) {
	logger, closeLog, err := newLogger("")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer closeLog()
	if logger.Enabled(t.Context(), -8) {
		t.Fatal("expected discarding logger")
	}
}

func TestVersionString(t *testing.T) {
	oldVersion, oldCommit := version, commit
	defer func() { version, commit = oldVersion, oldCommit }()
	version, commit = "1.2.3", ""
	if got := versionString(); got != "1.2.3" {
		t.Fatalf("unexpected %q", got)
	}
	commit = "abc123"
	if got := versionString(); got != "1.2.3 (abc123)" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestResetConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	path := filepath.Join(tmp, "shpool", "config.toml")
	if err := config.Save(path, config.Config{BufSize: 8192}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out bytes.Buffer
	if err := resetConfig(&out); err != nil {
		t.Fatalf("resetConfig: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected config removed, got %v", err)
	}
	cfg, _, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.Config{}) {
		t.Fatalf("expected defaults after reset, got %+v", cfg)
	}
	if err := resetConfig(&out); err != nil {
		t.Fatalf("reset without a config file: %v", err)
	}
}

func TestCheckResetFlags(t *testing.T) {
	if err := checkResetFlags(configFlags{Reset: true}); err != nil {
		t.Fatalf("plain --reset: %v", err)
	}
	var usageErr usageError
	if err := checkResetFlags(configFlags{Reset: true, BufSize: 1}); !errors.As(err, &usageErr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
