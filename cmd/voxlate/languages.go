package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/harunnryd/voxlate/pkg/languages"
	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List selectable languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := languages.All()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tLOCALE")
			for _, tag := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", tag.Code, tag.DisplayName, tag.SynthesisLocale)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
