// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
)

// Format selects how a session is written.
type Format string

const (
	// FormatAuto styles Markdown when writing to a terminal and writes it
	// plain otherwise.
	FormatAuto     Format = "auto"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", errors.NewInvalidInputError(fmt.Sprintf("unknown output format %q (want auto, markdown or json)", s))
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Session writes s to w in the given format.
func Session(w io.Writer, s *core.Session, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	md, err := Markdown(s)
	if err != nil {
		return err
	}
	if format == FormatAuto && IsTerminal(w) {
		md, err = style(md)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, md)
	return err
}

func style(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
