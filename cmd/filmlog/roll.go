package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/spf13/cobra"
)

func newRollCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Start, end and inspect rolls",
	}
	cmd.AddCommand(newRollStartCommand(), newRollEndCommand(), newRollListCommand(), newRollShowCommand())
	return cmd
}

func newRollStartCommand() *cobra.Command {
	var draft logbook.RollDraft
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new roll",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			roll, err := app.service.StartRoll(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started roll %s (%s, ISO %d) at %s\n",
				roll.ID, roll.FilmStock, roll.ISO, app.dates.FormatDisplay(roll.StartTime))
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.FilmStock, "film-stock", "", "Film stock, e.g. Kodak Portra 400")
	cmd.Flags().IntVar(&draft.ISO, "iso", 0, "Box speed")
	cmd.Flags().StringVar(&draft.Camera, "camera", "", "Camera body")
	cmd.Flags().StringVar(&draft.Lens, "lens", "", "Lens")
	cmd.Flags().StringVar(&draft.Notes, "notes", "", "Free-form notes")
	return cmd
}

func newRollEndCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "end <roll-id>",
		Short: "Mark a roll as finished",
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

			ended, err := app.service.EndRoll(cmd.Context(), rollID)
			if err != nil {
				return err
			}
			if !ended {
				return fmt.Errorf("roll %s not found", rollID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ended roll %s\n", rollID)
			return nil
		},
	}
}

func newRollListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rolls, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			rolls, err := app.service.Rolls().FetchRolls(cmd.Context())
			if err != nil {
				return err
			}
			writeRolls(cmd.OutOrStdout(), app.dates, rolls)
			return nil
		},
	}
}

func newRollShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <roll-id>",
		Short: "Show a roll and its frames",
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

			roll, found, err := app.service.Rolls().FetchRoll(cmd.Context(), rollID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("roll %s not found", rollID)
			}
			frames, err := app.service.Frames().FetchFrames(cmd.Context(), rollID)
			if err != nil {
				return err
			}
			writeRolls(cmd.OutOrStdout(), app.dates, []logbook.Roll{roll})
			fmt.Fprintln(cmd.OutOrStdout())
			writeFrames(cmd.OutOrStdout(), app.dates, frames)
			return nil
		},
	}
}

func writeRolls(out io.Writer, dates *codec.DateCodec, rolls []logbook.Roll) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ROLL\tFILM\tISO\tCAMERA\tLENS\tSTARTED\tSTATUS")
	for _, roll := range rolls {
		status := "active"
		if roll.EndTime != nil {
			status = "ended " + dates.FormatDisplay(*roll.EndTime)
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			roll.ID, roll.FilmStock, roll.ISO, roll.Camera, roll.Lens, dates.FormatDisplay(roll.StartTime), status)
	}
	_ = writer.Flush()
}

func writeFrames(out io.Writer, dates *codec.DateCodec, frames []logbook.Frame) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "FRAME\tTAKEN\tSHUTTER\tAPERTURE\tLOCATION\tKEYWORDS\tNOTE")
	for _, frame := range frames {
		location := ""
		if frame.Latitude != nil && frame.Longitude != nil {
			location = codec.FormatFloat(*frame.Latitude) + "," + codec.FormatFloat(*frame.Longitude)
		}
		note := codec.StringOrEmpty(frame.VoiceNoteParsed)
		if note == "" {
			note = codec.StringOrEmpty(frame.VoiceNoteRaw)
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			frame.FrameNumber,
			dates.FormatDisplay(frame.Timestamp),
			codec.StringOrEmpty(frame.Shutter),
			codec.StringOrEmpty(frame.Aperture),
			location,
			codec.StringOrEmpty(codec.JoinKeywords(frame.Keywords)),
			note)
	}
	_ = writer.Flush()
}
