package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/spf13/cobra"
)

var errIncompleteLocation = errors.New("--lat and --lon must be given together")

func newFrameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Log and inspect frames",
	}
	cmd.AddCommand(newFrameLogCommand(), newFrameListCommand(), newFrameNextCommand())
	return cmd
}

type frameFlags struct {
	capturedAt   string
	latitude     float64
	longitude    float64
	note         string
	keywords     string
	shutter      string
	aperture     string
	focalLength  int
	exposureComp string
	weather      string
	temperature  float64
}

func newFrameLogCommand() *cobra.Command {
	var flags frameFlags
	cmd := &cobra.Command{
		Use:   "log <roll-id>",
		Short: "Log the next frame of a roll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rollID, err := logbook.NewRollID(args[0])
			if err != nil {
				return err
			}
			capture, err := flags.capture(cmd)
			if err != nil {
				return err
			}
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			frame, err := app.service.LogFrame(cmd.Context(), rollID, capture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged frame %d on roll %s\n", frame.FrameNumber, rollID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.capturedAt, "at", "", "Capture time (RFC 3339); defaults to now")
	cmd.Flags().Float64Var(&flags.latitude, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&flags.longitude, "lon", 0, "Longitude")
	cmd.Flags().StringVar(&flags.note, "note", "", "Voice note transcript")
	cmd.Flags().StringVar(&flags.keywords, "keywords", "", "Comma-separated keywords")
	cmd.Flags().StringVar(&flags.shutter, "shutter", "", "Shutter speed, e.g. 1/125")
	cmd.Flags().StringVar(&flags.aperture, "aperture", "", "Aperture, e.g. f/8")
	cmd.Flags().IntVar(&flags.focalLength, "focal-length", 0, "Focal length in mm")
	cmd.Flags().StringVar(&flags.exposureComp, "exposure-comp", "", "Exposure compensation, e.g. +1")
	cmd.Flags().StringVar(&flags.weather, "weather", "", "Weather summary")
	cmd.Flags().Float64Var(&flags.temperature, "temperature", 0, "Temperature in degrees Celsius")
	return cmd
}

func (f frameFlags) capture(cmd *cobra.Command) (logbook.FrameCapture, error) {
	capture := logbook.FrameCapture{
		VoiceTranscript: f.note,
		Keywords:        codec.ParseKeywordInput(f.keywords),
		Shutter:         f.shutter,
		Aperture:        f.aperture,
		ExposureComp:    f.exposureComp,
		WeatherSummary:  f.weather,
	}
	if f.capturedAt != "" {
		capturedAt, err := time.Parse(time.RFC3339, f.capturedAt)
		if err != nil {
			return logbook.FrameCapture{}, fmt.Errorf("--at: %w", err)
		}
		capture.CapturedAt = capturedAt
	}
	latitudeSet, longitudeSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	if latitudeSet != longitudeSet {
		return logbook.FrameCapture{}, errIncompleteLocation
	}
	if latitudeSet {
		capture.Location = &logbook.LocationFix{Latitude: f.latitude, Longitude: f.longitude}
	}
	if cmd.Flags().Changed("focal-length") {
		focalLength := f.focalLength
		capture.FocalLength = &focalLength
	}
	if cmd.Flags().Changed("temperature") {
		temperature := f.temperature
		capture.TemperatureC = &temperature
	}
	return capture, nil
}

func newFrameListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <roll-id>",
		Short: "List the frames of a roll",
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

			frames, err := app.service.Frames().FetchFrames(cmd.Context(), rollID)
			if err != nil {
				return err
			}
			writeFrames(cmd.OutOrStdout(), app.dates, frames)
			return nil
		},
	}
}

func newFrameNextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next <roll-id>",
		Short: "Print the next frame number of a roll",
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

			next, err := app.service.Frames().NextFrameNumber(cmd.Context(), rollID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
}
