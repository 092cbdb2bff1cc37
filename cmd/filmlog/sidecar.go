package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/filmlog/internal/config"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logging"
	"github.com/MarcoPoloResearchLab/filmlog/internal/sidecar"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type sidecarFlags struct {
	csvPath   string
	imagesDir string
	pattern   string
	inPlace   bool
	output    string
}

func newSidecarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sidecar",
		Short: "Write exported frame metadata into scans with exiftool",
	}
	cmd.PersistentFlags().String("exiftool", config.NewViper().GetString("sidecar.exiftool"), "exiftool executable")
	cmd.PersistentFlags().String("exiftool-config", "", "exiftool config defining the XMP-filmmeta namespace")
	if err := viper.BindPFlag("sidecar.exiftool", cmd.PersistentFlags().Lookup("exiftool")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("sidecar.config", cmd.PersistentFlags().Lookup("exiftool-config")); err != nil {
		panic(err)
	}
	cmd.AddCommand(newSidecarPlanCommand(), newSidecarApplyCommand())
	return cmd
}

func bindSidecarFlags(cmd *cobra.Command, flags *sidecarFlags) {
	cmd.Flags().StringVar(&flags.csvPath, "csv", "", "CSV export of the roll")
	cmd.Flags().StringVar(&flags.imagesDir, "images", "", "Directory holding the scans")
	cmd.Flags().StringVar(&flags.pattern, "pattern", sidecar.DefaultPattern, "Scan filename pattern; %d is the frame number, {a,b} lists alternatives")
	cmd.Flags().BoolVar(&flags.inPlace, "inplace", false, "Write into the scans instead of XMP sidecars")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("images")
}

func newSidecarPlanCommand() *cobra.Command {
	var flags sidecarFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the exiftool calls apply would make",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applier, rows, err := prepareSidecar(flags)
			if err != nil {
				return err
			}
			plan, err := applier.Plan(cmd.Context(), rows)
			if err != nil {
				return err
			}
			if flags.output == "" {
				return plan.WriteYAML(cmd.OutOrStdout())
			}
			file, err := os.Create(flags.output)
			if err != nil {
				return err
			}
			if err := plan.WriteYAML(file); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d frames planned, %d missing, written to %s\n",
				len(plan.Entries), len(plan.Missing), flags.output)
			return nil
		},
	}
	bindSidecarFlags(cmd, &flags)
	cmd.Flags().StringVar(&flags.output, "output", "", "Write the plan as YAML to this file instead of stdout")
	return cmd
}

func newSidecarApplyCommand() *cobra.Command {
	var flags sidecarFlags
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run exiftool for every frame in the export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSidecarApply(cmd.Context(), cmd, flags)
		},
	}
	bindSidecarFlags(cmd, &flags)
	return cmd
}

func runSidecarApply(ctx context.Context, cmd *cobra.Command, flags sidecarFlags) error {
	applier, rows, err := prepareSidecar(flags)
	if err != nil {
		return err
	}
	report, err := applier.Apply(ctx, rows)
	fmt.Fprintf(cmd.OutOrStdout(), "%d scans updated, %d rows skipped\n", len(report.Applied), report.Skipped)
	return err
}

func prepareSidecar(flags sidecarFlags) (*sidecar.Applier, []sidecar.Row, error) {
	logger, err := logging.NewLogger(viper.GetString("log.level"), viper.GetBool("log.development"))
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(flags.csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	rows, err := sidecar.ReadRows(file)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := sidecar.NewResolver(flags.imagesDir, flags.pattern)
	if err != nil {
		return nil, nil, err
	}
	applier, err := sidecar.NewApplier(sidecar.ApplierConfig{
		Resolver: resolver,
		Runner:   sidecar.ExecRunner{},
		Binary:   viper.GetString("sidecar.exiftool"),
		Options: sidecar.Options{
			ConfigPath: viper.GetString("sidecar.config"),
			InPlace:    flags.inPlace,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return applier, rows, nil
}
