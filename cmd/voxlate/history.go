package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/harunnryd/voxlate/pkg/voxlate"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export or clear the translation history",
	}
	cmd.AddCommand(newHistoryListCmd(a), newHistoryExportCmd(a), newHistoryClearCmd(a))
	return cmd
}

func (a *app) withEngine(cmd *cobra.Command, fn func(*voxlate.Engine) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	engine, err := a.newEngine(cmd.Context(), cmd, cfg, runner.Hooks{})
	if err != nil {
		return err
	}
	defer engine.Close()
	return fn(engine)
}

func newHistoryListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print recent exchanges, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *voxlate.Engine) error {
				entries := e.Controller().History()
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "AT\tTARGET\tSOURCE\tTRANSLATION")
				for _, ex := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						ex.CreatedAt.Local().Format(time.DateTime), ex.TargetLanguage, ex.SourceText, ex.TranslatedText)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "only print the newest n entries")
	return cmd
}

func newHistoryExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the history as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *voxlate.Engine) error {
				if out == "" || out == "-" {
					return e.Controller().ExportHistory(cmd.OutOrStdout())
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := e.Controller().ExportHistory(f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d entries to %s\n", len(e.Controller().History()), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "translation_history.json", `output file, "-" for stdout`)
	return cmd
}

func newHistoryClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every exchange after confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *voxlate.Engine) error {
				n := len(e.Controller().History())
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "history is empty")
					return nil
				}
				confirmed := yes
				if !confirmed {
					confirmed = confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
						fmt.Sprintf("Clear all %d entries? [y/N] ", n))
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "history kept")
					return nil
				}
				if err := e.Controller().ClearHistory(cmd.Context(), true); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
