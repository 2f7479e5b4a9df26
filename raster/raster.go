// Package raster holds the pixel work: decoding, resampling, rotating,
// compositing and encoding images.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Format is an image file format.
type Format string

// Supported formats.
const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
)

// ErrUnsupportedFormat is returned for anything but jpeg, png and gif.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrFormatMismatch is returned when the data is not in the declared format.
var ErrFormatMismatch = errors.New("data does not match the declared format")

// ParseFormat maps a file extension onto a Format.
func ParseFormat(extension string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(extension), ".") {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	}
	return "", fmt.Errorf("%w: %#v", ErrUnsupportedFormat, extension)
}

// Image is a decoded image owned by the backend that created it.
type Image interface {
	Width() int
	Height() int
}

// Backend is a raster library.
type Backend interface {
	// Dimensions reads the size of an encoded image.
	Dimensions(data []byte) (width, height int, err error)
	// Decode parses an encoded image.
	Decode(data []byte, format Format) (Image, error)
	// Resample scales the src rectangle of img into width x height.
	Resample(img Image, src image.Rectangle, width, height int) (Image, error)
	// Rotate turns img counter-clockwise, exposed corners get background.
	Rotate(img Image, degrees int, background color.Color) (Image, error)
	// Composite draws overlay over base with its top left corner at x, y.
	Composite(base, overlay Image, x, y int) (Image, error)
	// Encode writes img. quality is 0-100 for JPEG and a 0-9 compression
	// level for PNG, GIF ignores it.
	Encode(img Image, format Format, quality int) ([]byte, error)
}

// constructors of the compiled in backends.
var backends = map[string]func() (Backend, error){
	"imaging": func() (Backend, error) { return NewImaging(), nil },
}

// DefaultBackend is used when no name is given.
const DefaultBackend = "imaging"

// New returns the backend registered under name.
func New(name string) (Backend, error) {
	if name == "" {
		name = DefaultBackend
	}

	constructor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown raster backend %#v", name)
	}
	return constructor()
}
