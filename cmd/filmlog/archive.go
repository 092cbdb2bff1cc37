package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/spf13/cobra"
)

func newArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect exports mirrored to the archive bucket",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <roll-id>",
		Short: "List the archived export files of a roll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rollID, err := logbook.NewRollID(args[0])
			if err != nil {
				return err
			}
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			mirror, err := app.newArchive(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := mirror.List(cmd.Context(), rollID.String())
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	})
	return cmd
}
