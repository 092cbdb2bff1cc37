// Package sidecar writes logged roll metadata into scanned negatives with exiftool.
package sidecar

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
)

var (
	// ErrInvalidExportRow indicates a tabular export that cannot be read.
	ErrInvalidExportRow = errors.New("sidecar: invalid export row")
	// ErrMissingImage indicates frames whose scan could not be found.
	ErrMissingImage = errors.New("sidecar: missing image")
)

const columnFrameNumber = "frame_number"

// Row is one line of a tabular roll export. Every value is kept as text.
type Row struct {
	RollID          string
	FilmStock       string
	ISO             string
	Camera          string
	Lens            string
	Notes           string
	StartTime       string
	EndTime         string
	FrameNumber     string
	Shutter         string
	Aperture        string
	FocalLength     string
	ExposureComp    string
	Timestamp       string
	Latitude        string
	Longitude       string
	WeatherSummary  string
	TemperatureC    string
	VoiceNoteRaw    string
	VoiceNoteParsed string
	Keywords        string
}

// Caption prefers the parsed voice note over the raw transcript.
func (r Row) Caption() string {
	if r.VoiceNoteParsed != "" {
		return r.VoiceNoteParsed
	}
	return r.VoiceNoteRaw
}

// Location returns "lat,lon" when both coordinates are present.
func (r Row) Location() string {
	if r.Latitude == "" || r.Longitude == "" {
		return ""
	}
	return r.Latitude + "," + r.Longitude
}

// KeywordList splits the keywords column on commas.
func (r Row) KeywordList() []string {
	return codec.ParseKeywordInput(r.Keywords)
}

// Frame reports the frame number when the column holds only digits.
func (r Row) Frame() (int, bool) {
	if r.FrameNumber == "" {
		return 0, false
	}
	for _, character := range r.FrameNumber {
		if character < '0' || character > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(r.FrameNumber)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ReadRows reads a tabular export by header name. Unknown columns are ignored
// and absent ones read as empty; the frame_number column is required.
func ReadRows(reader io.Reader) ([]Row, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty export", ErrInvalidExportRow)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidExportRow, err)
	}
	columns := make(map[string]int, len(header))
	for index, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = index
	}
	if _, ok := columns[columnFrameNumber]; !ok {
		return nil, fmt.Errorf("%w: no %s column", ErrInvalidExportRow, columnFrameNumber)
	}

	rows := []Row{}
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExportRow, err)
		}
		value := func(name string) string {
			index, ok := columns[name]
			if !ok || index >= len(record) {
				return ""
			}
			return record[index]
		}
		rows = append(rows, Row{
			RollID:          value("roll_id"),
			FilmStock:       value("film_stock"),
			ISO:             value("iso"),
			Camera:          value("camera"),
			Lens:            value("lens"),
			Notes:           value("notes"),
			StartTime:       value("start_time"),
			EndTime:         value("end_time"),
			FrameNumber:     value(columnFrameNumber),
			Shutter:         value("shutter"),
			Aperture:        value("aperture"),
			FocalLength:     value("focal_length"),
			ExposureComp:    value("exposure_comp"),
			Timestamp:       value("timestamp"),
			Latitude:        value("latitude"),
			Longitude:       value("longitude"),
			WeatherSummary:  value("weather_summary"),
			TemperatureC:    value("temperature_c"),
			VoiceNoteRaw:    value("voice_note_raw"),
			VoiceNoteParsed: value("voice_note_parsed"),
			Keywords:        value("keywords"),
		})
	}
}
