//go:build vips && cgo

package raster

import (
	"fmt"
	"image"
	"image/color"

	"gopkg.in/h2non/bimg.v1"
)

// error messages
var rotationMissing = "libvips cannot rotate angle that isn't a multiple of 90: %#v"
var openError = "libvips cannot open this file: %#v"

var bimgTypes = map[Format]bimg.ImageType{
	JPEG: bimg.JPEG,
	PNG:  bimg.PNG,
	GIF:  bimg.GIF,
}

func init() {
	backends["vips"] = func() (Backend, error) { return NewVips(), nil }
}

// Vips is the libvips backend. Intermediate images stay encoded buffers,
// which is how bimg works.
type Vips struct{}

// NewVips creates the libvips backend.
func NewVips() *Vips {
	return &Vips{}
}

type buffer struct {
	data []byte
	size bimg.ImageSize
}

func (b *buffer) Width() int  { return b.size.Width }
func (b *buffer) Height() int { return b.size.Height }

func newBuffer(data []byte) (*buffer, error) {
	size, err := bimg.Size(data)
	if err != nil {
		return nil, fmt.Errorf(openError, err.Error())
	}
	return &buffer{data, size}, nil
}

func unwrapBuffer(img Image) (*buffer, error) {
	b, ok := img.(*buffer)
	if !ok {
		return nil, errForeignImage
	}
	return b, nil
}

// Dimensions reads the image header only.
func (v *Vips) Dimensions(data []byte) (int, int, error) {
	size, err := bimg.Size(data)
	if err != nil {
		return 0, 0, err
	}
	return size.Width, size.Height, nil
}

// Decode checks libvips can read the buffer in the given format.
func (v *Vips) Decode(data []byte, format Format) (Image, error) {
	imageType := bimg.DetermineImageType(data)
	if !bimg.IsTypeSupported(imageType) {
		return nil, fmt.Errorf("libvips cannot read this format %#v as of yet", bimg.ImageTypes[imageType])
	}
	if expected, ok := bimgTypes[format]; !ok || expected != imageType {
		return nil, fmt.Errorf("%w: %s holds %s", ErrFormatMismatch, format, bimg.ImageTypes[imageType])
	}
	return newBuffer(data)
}

// Resample extracts src then forces the size.
func (v *Vips) Resample(img Image, src image.Rectangle, width, height int) (Image, error) {
	b, err := unwrapBuffer(img)
	if err != nil {
		return nil, err
	}

	data := b.data
	if src != image.Rect(0, 0, b.Width(), b.Height()) {
		data, err = bimg.NewImage(data).Extract(src.Min.Y, src.Min.X, src.Dx(), src.Dy())
		if err != nil {
			return nil, fmt.Errorf("bimg couldn't extract the image: %#v", err.Error())
		}
	}

	if src.Dx() != width || src.Dy() != height {
		data, err = bimg.NewImage(data).ForceResize(width, height)
		if err != nil {
			return nil, fmt.Errorf("bimg couldn't resize the image: %#v", err.Error())
		}
	}

	return newBuffer(data)
}

// Rotate only supports multiples of 90, so nothing is exposed.
func (v *Vips) Rotate(img Image, degrees int, _ color.Color) (Image, error) {
	b, err := unwrapBuffer(img)
	if err != nil {
		return nil, err
	}

	if degrees%90 != 0 {
		return nil, fmt.Errorf(rotationMissing, degrees)
	}

	// libvips turns clockwise.
	angle := (360 - degrees%360) % 360
	data, err := bimg.NewImage(b.data).Rotate(bimg.Angle(angle))
	if err != nil {
		return nil, fmt.Errorf("bimg couldn't rotate the image: %#v", err.Error())
	}
	return newBuffer(data)
}

// Composite uses the libvips watermark operation.
func (v *Vips) Composite(base, overlay Image, x, y int) (Image, error) {
	b, err := unwrapBuffer(base)
	if err != nil {
		return nil, err
	}
	o, err := unwrapBuffer(overlay)
	if err != nil {
		return nil, err
	}

	data, err := bimg.NewImage(b.data).WatermarkImage(bimg.WatermarkImage{
		Left:    x,
		Top:     y,
		Buf:     o.data,
		Opacity: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("bimg couldn't watermark the image: %#v", err.Error())
	}
	return newBuffer(data)
}

// Encode converts the buffer to the requested format.
func (v *Vips) Encode(img Image, format Format, quality int) ([]byte, error) {
	b, err := unwrapBuffer(img)
	if err != nil {
		return nil, err
	}

	imageType, ok := bimgTypes[format]
	if !ok || !bimg.IsTypeSupportedSave(imageType) {
		return nil, fmt.Errorf("%w: libvips cannot output this format %#v as of yet", ErrUnsupportedFormat, string(format))
	}

	options := bimg.Options{Type: imageType}
	if format == PNG {
		options.Compression = quality
	} else {
		options.Quality = quality
	}

	return bimg.NewImage(b.data).Process(options)
}
