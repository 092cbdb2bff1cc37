package logbook

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
)

func rollToRecord(dates *codec.DateCodec, roll Roll) RollRecord {
	return RollRecord{
		RollID:    roll.ID.String(),
		FilmStock: roll.FilmStock,
		ISO:       roll.ISO,
		Camera:    roll.Camera,
		Lens:      roll.Lens,
		Notes:     codec.Text(roll.Notes),
		StartTime: dates.FormatStored(roll.StartTime),
		EndTime:   dates.FormatStoredPtr(roll.EndTime),
	}
}

func rollFromRecord(dates *codec.DateCodec, record RollRecord) (Roll, error) {
	startTime, err := dates.ParseStored(record.StartTime)
	if err != nil {
		return Roll{}, fmt.Errorf("roll %s start_time: %w", record.RollID, err)
	}
	endTime, err := dates.ParseStoredPtr(record.EndTime)
	if err != nil {
		return Roll{}, fmt.Errorf("roll %s end_time: %w", record.RollID, err)
	}
	return Roll{
		ID:        RollID(record.RollID),
		FilmStock: record.FilmStock,
		ISO:       record.ISO,
		Camera:    record.Camera,
		Lens:      record.Lens,
		Notes:     codec.Text(record.Notes),
		StartTime: startTime,
		EndTime:   endTime,
	}, nil
}

func frameToRecord(dates *codec.DateCodec, frame Frame) FrameRecord {
	return FrameRecord{
		RollID:          frame.RollID.String(),
		FrameNumber:     frame.FrameNumber,
		Shutter:         codec.Text(frame.Shutter),
		Aperture:        codec.Text(frame.Aperture),
		FocalLength:     frame.FocalLength,
		ExposureComp:    codec.Text(frame.ExposureComp),
		Timestamp:       dates.FormatStored(frame.Timestamp),
		Latitude:        frame.Latitude,
		Longitude:       frame.Longitude,
		WeatherSummary:  codec.Text(frame.WeatherSummary),
		TemperatureC:    frame.TemperatureC,
		VoiceNoteRaw:    codec.Text(frame.VoiceNoteRaw),
		VoiceNoteParsed: codec.Text(frame.VoiceNoteParsed),
		Keywords:        codec.JoinKeywords(frame.Keywords),
	}
}

func frameFromRecord(dates *codec.DateCodec, record FrameRecord) (Frame, error) {
	timestamp, err := dates.ParseStored(record.Timestamp)
	if err != nil {
		return Frame{}, fmt.Errorf("frame %s/%d timestamp: %w", record.RollID, record.FrameNumber, err)
	}
	return Frame{
		RollID:          RollID(record.RollID),
		FrameNumber:     record.FrameNumber,
		Shutter:         codec.Text(record.Shutter),
		Aperture:        codec.Text(record.Aperture),
		FocalLength:     record.FocalLength,
		ExposureComp:    codec.Text(record.ExposureComp),
		Timestamp:       timestamp,
		Latitude:        record.Latitude,
		Longitude:       record.Longitude,
		WeatherSummary:  codec.Text(record.WeatherSummary),
		TemperatureC:    record.TemperatureC,
		VoiceNoteRaw:    codec.Text(record.VoiceNoteRaw),
		VoiceNoteParsed: codec.Text(record.VoiceNoteParsed),
		Keywords:        codec.SplitKeywords(record.Keywords),
	}, nil
}
