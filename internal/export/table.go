package export

import (
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
)

// TableColumns is the fixed header of the tabular export.
var TableColumns = []string{
	"roll_id",
	"film_stock",
	"iso",
	"camera",
	"lens",
	"notes",
	"start_time",
	"end_time",
	"frame_number",
	"shutter",
	"aperture",
	"focal_length",
	"exposure_comp",
	"timestamp",
	"latitude",
	"longitude",
	"weather_summary",
	"temperature_c",
	"voice_note_raw",
	"voice_note_parsed",
	"keywords",
}

const (
	tableFieldSeparator = ","
	tableLineSeparator  = "\n"
)

// encodeTable renders one header line and one line per frame with the roll's
// fields repeated. Data fields are always quoted; the header is not. Lines are
// joined without a trailing newline.
//
// encoding/csv only quotes when needed, so the quoting here is done by hand.
func encodeTable(dates *codec.DateCodec, roll logbook.Roll, frames []logbook.Frame) []byte {
	lines := make([]string, 0, len(frames)+1)
	lines = append(lines, strings.Join(TableColumns, tableFieldSeparator))

	rollFields := []string{
		roll.ID.String(),
		roll.FilmStock,
		strconv.Itoa(roll.ISO),
		roll.Camera,
		roll.Lens,
		codec.StringOrEmpty(roll.Notes),
		dates.FormatStored(roll.StartTime),
		codec.StringOrEmpty(dates.FormatStoredPtr(roll.EndTime)),
	}
	for _, frame := range frames {
		fields := make([]string, 0, len(TableColumns))
		fields = append(fields, rollFields...)
		fields = append(fields,
			strconv.Itoa(frame.FrameNumber),
			codec.StringOrEmpty(frame.Shutter),
			codec.StringOrEmpty(frame.Aperture),
			codec.IntOrEmpty(frame.FocalLength),
			codec.StringOrEmpty(frame.ExposureComp),
			dates.FormatStored(frame.Timestamp),
			codec.FloatOrEmpty(frame.Latitude),
			codec.FloatOrEmpty(frame.Longitude),
			codec.StringOrEmpty(frame.WeatherSummary),
			codec.FloatOrEmpty(frame.TemperatureC),
			codec.StringOrEmpty(frame.VoiceNoteRaw),
			codec.StringOrEmpty(frame.VoiceNoteParsed),
			codec.StringOrEmpty(codec.JoinKeywords(frame.Keywords)),
		)
		for index, field := range fields {
			fields[index] = quoteField(field)
		}
		lines = append(lines, strings.Join(fields, tableFieldSeparator))
	}
	return []byte(strings.Join(lines, tableLineSeparator))
}

func quoteField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
