package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/filmlog/internal/config"
	"github.com/MarcoPoloResearchLab/filmlog/internal/export"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newExportCommand() *cobra.Command {
	var formatName string
	cmd := &cobra.Command{
		Use:   "export <roll-id>",
		Short: "Write a roll and its frames to a JSON or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rollID, err := logbook.NewRollID(args[0])
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			exporter, err := app.newExporter(cmd.Context())
			if err != nil {
				return err
			}
			result, err := exporter.Export(cmd.Context(), rollID, format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			if result.ArchiveKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "archived as %s\n", result.ArchiveKey)
			}
			if result.ArchiveErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "archive failed: %v\n", result.ArchiveErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formatName, "format", string(export.FormatJSON), "Export format (json or csv)")
	cmd.Flags().String("prefix", config.NewViper().GetString("export.prefix"), "Export filename prefix")
	if err := viper.BindPFlag("export.prefix", cmd.Flags().Lookup("prefix")); err != nil {
		panic(err)
	}
	return cmd
}
