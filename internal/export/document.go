package export

import (
	"bytes"
	"encoding/json"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
)

// Fields are declared in key order so the encoder emits sorted keys.

type rollDocument struct {
	Frames []frameEntry `json:"frames"`
	Roll   rollEntry    `json:"roll"`
}

type rollEntry struct {
	Camera    string  `json:"camera"`
	EndTime   *string `json:"endTime,omitempty"`
	FilmStock string  `json:"filmStock"`
	ISO       int     `json:"iso"`
	Lens      string  `json:"lens"`
	Notes     *string `json:"notes,omitempty"`
	RollID    string  `json:"rollId"`
	StartTime string  `json:"startTime"`
}

type frameEntry struct {
	Aperture        *string  `json:"aperture,omitempty"`
	ExposureComp    *string  `json:"exposureComp,omitempty"`
	FocalLength     *int     `json:"focalLength,omitempty"`
	FrameNumber     int      `json:"frameNumber"`
	Keywords        []string `json:"keywords"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	RollID          string   `json:"rollId"`
	Shutter         *string  `json:"shutter,omitempty"`
	TemperatureC    *float64 `json:"temperatureC,omitempty"`
	Timestamp       string   `json:"timestamp"`
	VoiceNoteParsed *string  `json:"voiceNoteParsed,omitempty"`
	VoiceNoteRaw    *string  `json:"voiceNoteRaw,omitempty"`
	WeatherSummary  *string  `json:"weatherSummary,omitempty"`
}

func buildDocument(dates *codec.DateCodec, roll logbook.Roll, frames []logbook.Frame) rollDocument {
	document := rollDocument{
		Frames: make([]frameEntry, 0, len(frames)),
		Roll: rollEntry{
			Camera:    roll.Camera,
			EndTime:   dates.FormatStoredPtr(roll.EndTime),
			FilmStock: roll.FilmStock,
			ISO:       roll.ISO,
			Lens:      roll.Lens,
			Notes:     codec.Text(roll.Notes),
			RollID:    roll.ID.String(),
			StartTime: dates.FormatStored(roll.StartTime),
		},
	}
	for _, frame := range frames {
		keywords := frame.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		document.Frames = append(document.Frames, frameEntry{
			Aperture:        codec.Text(frame.Aperture),
			ExposureComp:    codec.Text(frame.ExposureComp),
			FocalLength:     frame.FocalLength,
			FrameNumber:     frame.FrameNumber,
			Keywords:        keywords,
			Latitude:        frame.Latitude,
			Longitude:       frame.Longitude,
			RollID:          frame.RollID.String(),
			Shutter:         codec.Text(frame.Shutter),
			TemperatureC:    frame.TemperatureC,
			Timestamp:       dates.FormatStored(frame.Timestamp),
			VoiceNoteParsed: codec.Text(frame.VoiceNoteParsed),
			VoiceNoteRaw:    codec.Text(frame.VoiceNoteRaw),
			WeatherSummary:  codec.Text(frame.WeatherSummary),
		})
	}
	return document
}

// encodeDocument renders the structured export as indented JSON.
func encodeDocument(dates *codec.DateCodec, roll logbook.Roll, frames []logbook.Frame) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(buildDocument(dates, roll, frames)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buffer.Bytes(), "\n"), nil
}
