package imagelink

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"time"

	"github.com/greut/imagelink/raster"
)

// pngQualityFactor maps a 0-100 quality onto the 0-9 zlib levels.
const pngQualityFactor = 0.09

// watermarkMargin is the share of the smallest side left between the
// watermark and the edges.
const watermarkMargin = 0.05

// Rendered is an encoded image ready to be served or cached.
type Rendered struct {
	Buffer      []byte
	ContentType string
	ModTime     time.Time
	Size        Size
}

// Default limits of the rendered images, and of the intermediate ones.
const (
	DefaultMaxWidth  = 8192
	DefaultMaxHeight = 8192
	DefaultMaxArea   = 32 * 1024 * 1024
)

// Limits bound the size of the images a renderer allocates. Zero means
// the default.
type Limits struct {
	MaxWidth  int
	MaxHeight int
	MaxArea   int
}

func (l Limits) effective() Limits {
	if l.MaxWidth <= 0 {
		l.MaxWidth = DefaultMaxWidth
	}
	if l.MaxHeight <= 0 {
		l.MaxHeight = DefaultMaxHeight
	}
	if l.MaxArea <= 0 {
		l.MaxArea = DefaultMaxArea
	}
	return l
}

// Check fails with ErrInvalidOption when width x height is out of the
// limits.
func (l Limits) Check(width, height int) error {
	e := l.effective()
	// width and height are bounded first so the area cannot overflow.
	if width > e.MaxWidth || height > e.MaxHeight || width*height > e.MaxArea {
		message := fmt.Sprintf(maxSizeError, width, height, e.MaxWidth, e.MaxHeight, e.MaxArea)
		return fmt.Errorf("%w: %s", ErrInvalidOption, message)
	}
	return nil
}

// Renderer runs the transformations of a request over its source image.
type Renderer struct {
	Images  string
	Backend raster.Backend
	Limits  Limits
}

// NewRenderer creates a renderer reading the sources below images.
func NewRenderer(images string, backend raster.Backend) *Renderer {
	return &Renderer{
		Images:  images,
		Backend: backend,
	}
}

// Render produces the encoded image. Nothing is returned on failure.
func (rd *Renderer) Render(ctx context.Context, r *Request) (*Rendered, error) {
	img, modTime, err := rd.prepare(ctx, r)
	if err != nil {
		return nil, err
	}

	if r.Watermark().Enabled {
		img, err = rd.addWatermark(ctx, r, img)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := raster.ParseFormat(r.Extension())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEncode, err.Error())
	}

	quality := r.Options().EffectiveQuality()
	if format == raster.PNG {
		quality = round(pngQualityFactor * float64(quality))
	}

	buffer, err := rd.Backend.Encode(img, format, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEncode, err.Error())
	}

	debug("Rendered %#v (%dx%d, %d bytes)", r.Filename(), img.Width(), img.Height(), len(buffer))

	return &Rendered{
		Buffer:      buffer,
		ContentType: r.ContentType(),
		ModTime:     modTime,
		Size:        Size{img.Width(), img.Height()},
	}, nil
}

// Dimensions reads the size of the source image.
func (rd *Renderer) Dimensions(r *Request) (Size, time.Time, error) {
	data, modTime, err := rd.open(r)
	if err != nil {
		return Size{}, modTime, err
	}

	w, h, err := rd.Backend.Dimensions(data)
	if err != nil {
		return Size{}, modTime, fmt.Errorf("%w: %s", ErrDecode, err.Error())
	}
	return Size{w, h}, modTime, nil
}

// ModTime is the last modification of the source image.
func (rd *Renderer) ModTime(r *Request) (time.Time, error) {
	stat, err := os.Stat(r.SourcePath(rd.Images))
	if err != nil || stat.IsDir() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrSourceNotFound, r.Source())
	}
	return stat.ModTime(), nil
}

// prepare decodes the source, resizes or cuts it then rotates it.
func (rd *Renderer) prepare(ctx context.Context, r *Request) (raster.Image, time.Time, error) {
	o := r.Options()

	if err := o.Validate(); err != nil {
		return nil, time.Time{}, err
	}

	if o.Width == 0 && o.Height == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: no width or height has been set", ErrMissingDimension)
	}

	if o.IsCut() && (o.Width == 0 || o.Height == 0) {
		return nil, time.Time{}, fmt.Errorf("%w: both width and height must be set to cut", ErrMissingDimension)
	}

	if err := rd.Limits.Check(o.Width, o.Height); err != nil {
		return nil, time.Time{}, err
	}

	data, modTime, err := rd.open(r)
	if err != nil {
		return nil, modTime, err
	}

	if err := ctx.Err(); err != nil {
		return nil, modTime, err
	}

	format, err := raster.ParseFormat(r.Extension())
	if err != nil {
		return nil, modTime, fmt.Errorf("%w: %s", ErrDecode, err.Error())
	}

	img, err := rd.Backend.Decode(data, format)
	if err != nil {
		return nil, modTime, fmt.Errorf("%w: %s", ErrDecode, err.Error())
	}

	origin := Size{img.Width(), img.Height()}
	full := image.Rect(0, 0, origin.Width, origin.Height)

	size, err := ResolvedSize(origin, o)
	if err != nil {
		return nil, modTime, err
	}

	if size.Width <= 0 || size.Height <= 0 {
		return nil, modTime, fmt.Errorf("%w: resized to %dx%d", ErrEncode, size.Width, size.Height)
	}

	if err := rd.Limits.Check(size.Width, size.Height); err != nil {
		return nil, modTime, err
	}

	debug("Resizing %#v from %dx%d to %dx%d", r.Source(), origin.Width, origin.Height, size.Width, size.Height)

	if o.IsCut() {
		// First resize to the window with overflow, then cut the window
		// out by the align style.
		cut, err := CutSourceRect(origin, o)
		if err != nil {
			return nil, modTime, err
		}

		offset, err := AnchorOffset(origin, o)
		if err != nil {
			return nil, modTime, err
		}

		if err := rd.Limits.Check(cut.Width, cut.Height); err != nil {
			return nil, modTime, err
		}

		debug("Cutting %dx%d at %v", cut.Width, cut.Height, offset)

		img, err = rd.Backend.Resample(img, full, cut.Width, cut.Height)
		if err != nil {
			return nil, modTime, fmt.Errorf("%w: %s", ErrEncode, err.Error())
		}

		window := image.Rectangle{Min: offset, Max: offset.Add(image.Pt(size.Width, size.Height))}
		img, err = rd.Backend.Resample(img, window, size.Width, size.Height)
		if err != nil {
			return nil, modTime, fmt.Errorf("%w: %s", ErrEncode, err.Error())
		}
	} else {
		img, err = rd.Backend.Resample(img, full, size.Width, size.Height)
		if err != nil {
			return nil, modTime, fmt.Errorf("%w: %s", ErrEncode, err.Error())
		}
	}

	if angle := o.Rotation % 360; angle != 0 {
		var background color.Color = color.Black
		if r.HasAlpha() {
			background = color.Transparent
		}

		img, err = rd.Backend.Rotate(img, angle, background)
		if err != nil {
			return nil, modTime, fmt.Errorf("%w: %s", ErrEncode, err.Error())
		}
	}

	return img, modTime, nil
}

// addWatermark renders the watermark source to a third of the image width
// and stamps it on the bottom right corner.
func (rd *Renderer) addWatermark(ctx context.Context, r *Request, img raster.Image) (raster.Image, error) {
	w := r.Watermark()
	if w.Source == "" {
		return nil, ErrWatermarkSourceMissing
	}

	mark, err := NewRequest(w.Source)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	// The watermark keeps its own aspect ratio.
	nested := *mark
	nested.options = Options{Width: round(float64(img.Width()) * w.EffectiveRatio())}

	overlay, _, err := rd.prepare(ctx, &nested)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	margin := round(math.Min(watermarkMargin*float64(img.Width()), watermarkMargin*float64(img.Height())))
	x := img.Width() - overlay.Width() - margin
	y := img.Height() - overlay.Height() - margin

	debug("Watermark %#v at %d,%d", w.Source, x, y)

	out, err := rd.Backend.Composite(img, overlay, x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEncode, err.Error())
	}
	return out, nil
}

// open reads the source image file.
func (rd *Renderer) open(r *Request) ([]byte, time.Time, error) {
	filename := r.SourcePath(rd.Images)

	stat, err := os.Stat(filename)
	if err != nil || stat.IsDir() {
		debug("Cannot open file %#v", filename)
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrSourceNotFound, r.Source())
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrSourceNotFound, err.Error())
	}

	return data, stat.ModTime(), nil
}
