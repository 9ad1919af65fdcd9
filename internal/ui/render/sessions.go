// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/ui/styles"
)

// SessionTable renders sessions as aligned NAME / STARTED_AT columns.
func SessionTable(sessions []protocol.Session, s styles.Styles) string {
	const nameHeader = "NAME"
	maxWidth := len(nameHeader)
	for _, session := range sessions {
		if width := len(session.Name); width > maxWidth {
			maxWidth = width
		}
	}
	rows := make([]string, 0, len(sessions)+1)
	rows = append(rows, s.Header.Render(pad(nameHeader, maxWidth)+"  STARTED_AT"))
	for _, session := range sessions {
		started := session.StartedAt().Local().Format(time.RFC3339)
		rows = append(rows, fmt.Sprintf("%s  %s", s.Name.Render(pad(session.Name, maxWidth)), s.Muted.Render(started)))
	}
	return strings.Join(rows, "\n") + "\n"
}

// NotFound renders the per-name warnings that detach and kill report.
func NotFound(verb string, notFound, notAttached []string, s styles.Styles) string {
	var rows []string
	for _, name := range notFound {
		rows = append(rows, s.Warn.Render(fmt.Sprintf("not %s: no session named %q", verb, name)))
	}
	for _, name := range notAttached {
		rows = append(rows, s.Warn.Render(fmt.Sprintf("not %s: session %q has no client attached", verb, name)))
	}
	if len(rows) == 0 {
		return ""
	}
	return strings.Join(rows, "\n") + "\n"
}

func pad(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(value))
}
