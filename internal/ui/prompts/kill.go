// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prompts

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/jalberss/shpool/internal/ui/styles"
)

// KillTitle is the confirmation question for killing sessions.
func KillTitle(sessions []string) string {
	if len(sessions) == 1 {
		return fmt.Sprintf("Kill session %q?", sessions[0])
	}
	return fmt.Sprintf("Kill %d sessions (%s)?", len(sessions), strings.Join(sessions, ", "))
}

// ConfirmKill asks before killing sessions. The shell and everything
// running under it goes away, so the default answer is no.
func ConfirmKill(in io.Reader, out io.Writer, sessions []string) (bool, error) {
	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(KillTitle(sessions)).
				Description("Running programs in the session are terminated.").
				Affirmative("Kill").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	form.WithInput(in).WithOutput(out).WithTheme(styles.HuhTheme(out))
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
