// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package styles

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles is the semantic style set for CLI output.
type Styles struct {
	Header lipgloss.Style
	Name   lipgloss.Style
	Muted  lipgloss.Style
	Value  lipgloss.Style
	Error  lipgloss.Style
	Warn   lipgloss.Style
}

type tokens struct {
	header string
	name   string
	muted  string
	value  string
	error  string
	warn   string
}

var darkTokens = tokens{
	header: "81",
	name:   "213",
	muted:  "243",
	value:  "252",
	error:  "203",
	warn:   "214",
}

var lightTokens = tokens{
	header: "23",
	name:   "90",
	muted:  "240",
	value:  "234",
	error:  "160",
	warn:   "94",
}

// DefaultStyles carries no color, only weight.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true),
		Name:   lipgloss.NewStyle(),
		Muted:  lipgloss.NewStyle().Faint(true),
		Value:  lipgloss.NewStyle(),
		Error:  lipgloss.NewStyle().Bold(true),
		Warn:   lipgloss.NewStyle(),
	}
}

// ForOutput picks colored styles when out is a color-capable terminal.
func ForOutput(out io.Writer) Styles {
	if !EnabledForOutput(out) {
		return DefaultStyles()
	}
	return build(tokensFor(os.Getenv("COLORFGBG")))
}

func build(pal tokens) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(pal.header)),
		Name:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(pal.name)),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color(pal.muted)),
		Value:  lipgloss.NewStyle().Foreground(lipgloss.Color(pal.value)),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(pal.error)),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color(pal.warn)),
	}
}

func EnabledForOutput(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	termValue := os.Getenv("TERM")
	if termValue == "" || termValue == "dumb" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// tokensFor reads the background index from COLORFGBG ("fg;bg").
// Indexes 7 and 9-15 are light backgrounds in the xterm 16-color table.
func tokensFor(colorfgbg string) tokens {
	parts := strings.Split(strings.TrimSpace(colorfgbg), ";")
	if len(parts) < 2 {
		return darkTokens
	}
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return darkTokens
	}
	if bg == 7 || (bg >= 9 && bg <= 15) {
		return lightTokens
	}
	return darkTokens
}

// HuhTheme is the prompt theme matching ForOutput(out).
func HuhTheme(out io.Writer) *huh.Theme {
	if !EnabledForOutput(out) {
		return huh.ThemeBase()
	}
	pal := tokensFor(os.Getenv("COLORFGBG"))
	theme := huh.ThemeBase()
	header := lipgloss.Color(pal.header)
	muted := lipgloss.Color(pal.muted)
	errColor := lipgloss.Color(pal.error)

	theme.Focused.Title = theme.Focused.Title.Foreground(header).Bold(true)
	theme.Focused.Description = theme.Focused.Description.Foreground(muted)
	theme.Focused.ErrorIndicator = theme.Focused.ErrorIndicator.Foreground(errColor)
	theme.Focused.ErrorMessage = theme.Focused.ErrorMessage.Foreground(errColor)
	theme.Focused.FocusedButton = theme.Focused.FocusedButton.Background(header)
	theme.Blurred = theme.Focused
	theme.Blurred.Base = theme.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	return theme
}
