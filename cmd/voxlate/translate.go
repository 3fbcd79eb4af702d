package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/spf13/cobra"
)

func newTranslateCmd(a *app) *cobra.Command {
	var (
		target string
		speak  bool
	)
	cmd := &cobra.Command{
		Use:   "translate <text>...",
		Short: "Translate typed text once and record it in history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("nothing to translate")
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			engine, err := a.newEngine(cmd.Context(), cmd, cfg, runner.Hooks{})
			if err != nil {
				return err
			}
			defer engine.Close()

			ctrl := engine.Controller()
			if target != "" {
				if err := ctrl.SetTargetLanguage(target); err != nil {
					return err
				}
			}
			out, err := ctrl.Translate(cmd.Context(), text, speak)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("translation to %s unavailable", ctrl.TargetLanguage())
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "target language code for this run")
	cmd.Flags().BoolVarP(&speak, "speak", "s", false, "speak the translation")
	return cmd
}
