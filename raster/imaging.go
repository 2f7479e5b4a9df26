package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	"image/png"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

var errForeignImage = errors.New("image was not decoded by this backend")

// Imaging is the pure Go backend.
type Imaging struct {
	Filter imaging.ResampleFilter
}

// NewImaging creates the backend with Lanczos resampling.
func NewImaging() *Imaging {
	return &Imaging{Filter: imaging.Lanczos}
}

type bitmap struct {
	image.Image
}

func (b bitmap) Width() int  { return b.Bounds().Dx() }
func (b bitmap) Height() int { return b.Bounds().Dy() }

func unwrap(img Image) (image.Image, error) {
	b, ok := img.(bitmap)
	if !ok {
		return nil, errForeignImage
	}
	return b.Image, nil
}

// Dimensions reads the image header only.
func (b *Imaging) Dimensions(data []byte) (int, int, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

// Decode parses data, which must be in the given format.
func (b *Imaging) Decode(data []byte, format Format) (Image, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	if Format(name) != format {
		return nil, fmt.Errorf("%w: %s holds %s", ErrFormatMismatch, format, name)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	return bitmap{img}, nil
}

// Resample crops src out of img and scales it.
func (b *Imaging) Resample(img Image, src image.Rectangle, width, height int) (Image, error) {
	m, err := unwrap(img)
	if err != nil {
		return nil, err
	}

	bounds := m.Bounds()
	src = src.Add(bounds.Min)
	if src != bounds {
		m = imaging.Crop(m, src)
	}

	if m.Bounds().Dx() == width && m.Bounds().Dy() == height {
		return bitmap{m}, nil
	}
	return bitmap{imaging.Resize(m, width, height, b.Filter)}, nil
}

// Rotate supports any angle.
func (b *Imaging) Rotate(img Image, degrees int, background color.Color) (Image, error) {
	m, err := unwrap(img)
	if err != nil {
		return nil, err
	}
	return bitmap{imaging.Rotate(m, float64(degrees), background)}, nil
}

// Composite keeps the transparency of overlay.
func (b *Imaging) Composite(base, overlay Image, x, y int) (Image, error) {
	dst, err := unwrap(base)
	if err != nil {
		return nil, err
	}
	src, err := unwrap(overlay)
	if err != nil {
		return nil, err
	}

	canvas := imaging.Clone(dst)
	r := image.Rect(x, y, x+overlay.Width(), y+overlay.Height())
	xdraw.Draw(canvas, r, src, src.Bounds().Min, xdraw.Over)
	return bitmap{canvas}, nil
}

// Encode writes the image in the given format.
func (b *Imaging) Encode(img Image, format Format, quality int) ([]byte, error) {
	m, err := unwrap(img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case JPEG:
		err = imaging.Encode(&buf, m, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		err = imaging.Encode(&buf, m, imaging.PNG, imaging.PNGCompressionLevel(compressionLevel(quality)))
	case GIF:
		err = imaging.Encode(&buf, m, imaging.GIF)
	default:
		return nil, fmt.Errorf("%w: %#v", ErrUnsupportedFormat, string(format))
	}

	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compressionLevel maps a zlib 0-9 level onto what image/png offers.
func compressionLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	}
	return png.BestCompression
}
