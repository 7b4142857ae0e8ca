package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
)

func newFontsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fonts",
		Short: "Show which font candidates load",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			attempts := cfg.FontResolver().Probe()

			selected := -1
			rows := make([][]string, 0, len(attempts))
			for i, a := range attempts {
				status := "ok"
				switch {
				case a.Err == nil:
					if selected < 0 {
						selected = i
					}
				case errors.Is(a.Err, fs.ErrNotExist):
					status = "missing"
				default:
					status = "unreadable"
				}
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), a.Path, status, yesNo(i == selected)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Path", "Status", "Used"}, rows, []columnAlignment{alignRight}))
			if selected < 0 {
				fmt.Fprintln(out, "No candidate loaded; text uses the embedded Go Bold face")
			}
			return nil
		},
	}
}
