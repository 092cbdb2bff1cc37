package sidecar

// XMPSidecarTarget tells exiftool to write <dir><name>.xmp next to the scan.
const XMPSidecarTarget = "%d%f.xmp"

// Options controls how exiftool writes the metadata.
type Options struct {
	// ConfigPath points at the exiftool config that defines the XMP-filmmeta namespace.
	ConfigPath string
	// InPlace rewrites the scan itself instead of writing an XMP sidecar.
	InPlace bool
}

// BuildArgs returns the exiftool arguments for one row, without the binary and the image path.
func BuildArgs(row Row, options Options) []string {
	args := []string{}
	if options.ConfigPath != "" {
		args = append(args, "-config", options.ConfigPath)
	}
	if options.InPlace {
		args = append(args, "-overwrite_original")
	} else {
		args = append(args, "-o", XMPSidecarTarget)
	}

	if caption := row.Caption(); caption != "" {
		args = append(args, "-XMP-dc:Description="+caption)
	}
	if location := row.Location(); location != "" {
		args = append(args, "-XMP-iptcCore:Location="+location)
	}
	for _, keyword := range row.KeywordList() {
		args = append(args, "-XMP-dc:Subject+="+keyword)
	}

	filmFields := []struct {
		tag   string
		value string
	}{
		{"FilmShutterSpeed", row.Shutter},
		{"FilmAperture", row.Aperture},
		{"FilmISO", row.ISO},
		{"FilmStock", row.FilmStock},
		{"Camera", row.Camera},
		{"Lens", row.Lens},
	}
	for _, field := range filmFields {
		if field.value == "" {
			continue
		}
		args = append(args, "-XMP-filmmeta:"+field.tag+"="+field.value)
	}
	return args
}
