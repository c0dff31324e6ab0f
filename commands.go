package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"markestedt/snapkeys/binds"
	"markestedt/snapkeys/keyset"
	"markestedt/snapkeys/storage"
)

type bindingRow struct {
	Key   string `json:"key" yaml:"key"`
	Bytes int    `json:"bytes" yaml:"bytes"`
}

// readBindings loads the bindings without taking ownership of them. A
// missing file reads as empty.
func (c *cli) readBindings() (map[keyset.Key][]byte, error) {
	path := c.cfg.BindingsPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return map[keyset.Key][]byte{}, nil
	}

	p, err := binds.OpenPersister(c.cfg.Bindings.Backend, path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open bindings (is the agent running?): %w", err)
	}
	defer p.Close()

	return p.Load()
}

func (c *cli) newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bound letters and image sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.readBindings()
			if err != nil {
				return err
			}

			keys := make([]keyset.Key, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			keyset.Sort(keys)

			rows := make([]bindingRow, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, bindingRow{Key: k.String(), Bytes: len(m[k])})
			}
			return writeBindings(cmd.OutOrStdout(), format, rows)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	return cmd
}

func writeBindings(w io.Writer, format string, rows []bindingRow) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case "text":
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "No bindings")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", r.Key, humanize.Bytes(uint64(r.Bytes)))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func (c *cli) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <letter> <file>",
		Short: "Write the image bound to a letter to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyset.ParseLetter(args[0])
			if err != nil {
				return err
			}

			m, err := c.readBindings()
			if err != nil {
				return err
			}
			img, ok := m[key]
			if !ok {
				return fmt.Errorf("%w: %s", binds.ErrNotBound, key)
			}

			if err := os.WriteFile(args[1], img, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s image (%s) to %s\n", key, humanize.Bytes(uint64(len(img))), args[1])
			return nil
		},
	}
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent combos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(c.cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer db.Close()

			attempts, err := db.GetAttempts(limit, 0)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), attempts)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of combos to show")
	return cmd
}

func writeHistory(w io.Writer, attempts []storage.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No history")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMODE\tKEY\tSTATUS\tDURATION\tSIZE\tERROR")
	for _, a := range attempts {
		key := a.Key
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Started.Format(time.DateTime),
			a.Mode,
			key,
			a.Status,
			time.Duration(a.DurationMs)*time.Millisecond,
			humanize.Bytes(uint64(a.BlobSize)),
			a.ErrorMessage,
		)
	}
	return tw.Flush()
}
