package logbook

// RollRecord is the persisted row for a roll. Frames declares the
// frames.roll_id -> rolls.roll_id foreign key; it is never loaded.
type RollRecord struct {
	RollID    string        `gorm:"column:roll_id;primaryKey;size:190;not null"`
	FilmStock string        `gorm:"column:film_stock;type:text;not null"`
	ISO       int           `gorm:"column:iso;not null"`
	Camera    string        `gorm:"column:camera;type:text;not null"`
	Lens      string        `gorm:"column:lens;type:text;not null"`
	Notes     *string       `gorm:"column:notes;type:text"`
	StartTime string        `gorm:"column:start_time;type:text;not null;index:idx_rolls_start_time"`
	EndTime   *string       `gorm:"column:end_time;type:text"`
	Frames    []FrameRecord `gorm:"foreignKey:RollID;references:RollID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (RollRecord) TableName() string {
	return "rolls"
}

// FrameRecord is the persisted row for a frame. The composite primary key is
// the backstop against duplicate frame numbers; roll_id references rolls, so
// frames can never point at a missing roll.
type FrameRecord struct {
	RollID          string   `gorm:"column:roll_id;primaryKey;size:190;not null"`
	FrameNumber     int      `gorm:"column:frame_number;primaryKey;autoIncrement:false;not null"`
	Shutter         *string  `gorm:"column:shutter;type:text"`
	Aperture        *string  `gorm:"column:aperture;type:text"`
	FocalLength     *int     `gorm:"column:focal_length"`
	ExposureComp    *string  `gorm:"column:exposure_comp;type:text"`
	Timestamp       string   `gorm:"column:timestamp;type:text;not null"`
	Latitude        *float64 `gorm:"column:latitude"`
	Longitude       *float64 `gorm:"column:longitude"`
	WeatherSummary  *string  `gorm:"column:weather_summary;type:text"`
	TemperatureC    *float64 `gorm:"column:temperature_c"`
	VoiceNoteRaw    *string  `gorm:"column:voice_note_raw;type:text"`
	VoiceNoteParsed *string  `gorm:"column:voice_note_parsed;type:text"`
	Keywords        *string  `gorm:"column:keywords;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (FrameRecord) TableName() string {
	return "frames"
}

// SchemaModels lists the logbook tables, parents first.
func SchemaModels() []any {
	return []any{&RollRecord{}, &FrameRecord{}}
}

// OptionalTextColumns lists nullable text columns per table. An empty string is
// never a valid stored value in any of them.
var OptionalTextColumns = map[string][]string{
	"rolls":  {"notes", "end_time"},
	"frames": {"shutter", "aperture", "exposure_comp", "weather_summary", "voice_note_raw", "voice_note_parsed", "keywords"},
}
