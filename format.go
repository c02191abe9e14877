package mascotlayer

import (
	"fmt"
	"strings"
)

// Format is an output image encoding.
type Format int

const (
	PNG Format = iota
	JPEG
)

// ParseFormat accepts "PNG", "JPEG" and "JPG" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PNG":
		return PNG, nil
	case "JPEG", "JPG":
		return JPEG, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// MIMEType returns the media type of the encoding.
func (f Format) MIMEType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}
