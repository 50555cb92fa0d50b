// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/collab"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/render"
)

// batchItem is the JSON form of one batch result.
type batchItem struct {
	Query   string                `json:"query"`
	Session *core.Session         `json:"session,omitempty"`
	Error   *errors.ColloquyError `json:"error,omitempty"`
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var (
		file        string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch [question...]",
		Short: "Run independent sessions concurrently",
		Long: "batch runs one session per question. Questions come from the arguments or from a file " +
			"with one question per line (use - for stdin). Results are printed in input order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := append([]string(nil), args...)
			if file != "" {
				lines, err := readQueries(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				queries = append(queries, lines...)
			}
			if len(queries) == 0 {
				return invalidArgument("question", "at least one question is required")
			}

			return withApp(cmd, opts, func(a *app) error {
				n := concurrency
				if n < 1 {
					n = a.cfg.Generation.Concurrency
				}
				results := a.orch.RunMany(cmd.Context(), queries, n)
				a.save(cmd.Context(), results...)
				if err := writeBatch(cmd.OutOrStdout(), results, a.format); err != nil {
					return err
				}
				return batchError(results)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read questions from a file, one per line (- for stdin)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "sessions in flight (default generation.concurrency)")
	return cmd
}

func readQueries(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewInvalidInputError("cannot read questions").WithContext("path", path).WithContext("reason", err.Error())
		}
		defer f.Close()
		r = f
	}
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "cannot read questions", err)
	}
	return out, nil
}

func writeBatch(w io.Writer, results []collab.Result, format render.Format) error {
	if format == render.FormatJSON {
		items := make([]batchItem, len(results))
		for i, r := range results {
			items[i] = batchItem{Query: r.Query, Session: r.Session}
			if r.Err != nil {
				items[i].Error = errors.AsColloquyError(r.Err)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for i, r := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w, "\n---"); err != nil {
				return err
			}
		}
		if r.Session == nil {
			if _, err := fmt.Fprintf(w, "\n%q failed: %v\n", r.Query, r.Err); err != nil {
				return err
			}
			continue
		}
		if err := render.Session(w, r.Session, format); err != nil {
			return err
		}
	}
	return nil
}

func batchError(results []collab.Result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return errors.New(errors.CodeInternal, fmt.Sprintf("%d of %d sessions failed", failed, len(results)), nil).
		WithContext("failed", failed)
}
