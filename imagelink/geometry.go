package imagelink

import (
	"fmt"
	"image"
	"math"
)

// Size is a width and height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// anchors holds the share of the horizontal and vertical excess an anchor
// skips over.
var anchors = map[Align][2]float64{
	AlignTopLeft:     {0, 0},
	AlignTopMid:      {0.5, 0},
	AlignTopRight:    {1, 0},
	AlignMidLeft:     {0, 0.5},
	AlignMidMid:      {0.5, 0.5},
	AlignMidRight:    {1, 0.5},
	AlignBottomLeft:  {0, 1},
	AlignBottomMid:   {0.5, 1},
	AlignBottomRight: {1, 1},
}

// ResolvedSize computes the output size. With both dimensions given they are
// used as is, with only one the other follows the origin aspect ratio.
func ResolvedSize(origin Size, o Options) (Size, error) {
	if o.Width > 0 && o.Height > 0 {
		return Size{o.Width, o.Height}, nil
	}

	if origin.Width <= 0 || origin.Height <= 0 {
		return Size{}, fmt.Errorf("%w: origin is %dx%d", ErrMissingDimension, origin.Width, origin.Height)
	}

	ratio := float64(origin.Width) / float64(origin.Height)

	if o.Width > 0 {
		return Size{o.Width, round(float64(o.Width) / ratio)}, nil
	} else if o.Height > 0 {
		return Size{round(float64(o.Height) * ratio), o.Height}, nil
	}

	return Size{}, fmt.Errorf("%w: no width or height has been set", ErrMissingDimension)
}

// CutSourceRect computes the size the origin is scaled to before being cut.
// It covers the resolved size on one axis and overflows on the other.
func CutSourceRect(origin Size, o Options) (Size, error) {
	if !o.IsCut() || o.Width <= 0 || o.Height <= 0 {
		return Size{}, fmt.Errorf("%w: both width and height must be set to cut", ErrMissingDimension)
	}

	resized, err := ResolvedSize(origin, o)
	if err != nil {
		return Size{}, err
	}

	widthRatio := float64(origin.Width) / float64(resized.Width)
	heightRatio := float64(origin.Height) / float64(resized.Height)

	if widthRatio > heightRatio {
		return Size{round(float64(origin.Width) / heightRatio), resized.Height}, nil
	}
	return Size{resized.Width, round(float64(origin.Height) / widthRatio)}, nil
}

// AnchorOffset computes where the resolved size window starts inside the cut
// rectangle for the requested anchor.
func AnchorOffset(origin Size, o Options) (image.Point, error) {
	align := o.EffectiveAlign()
	factors, ok := anchors[align]
	if !ok {
		return image.Point{}, fmt.Errorf("%w: %s", ErrInvalidAlign, fmt.Sprintf(alignError, string(align)))
	}

	cut, err := CutSourceRect(origin, o)
	if err != nil {
		return image.Point{}, err
	}

	resized, err := ResolvedSize(origin, o)
	if err != nil {
		return image.Point{}, err
	}

	return image.Pt(
		round(factors[0]*float64(cut.Width-resized.Width)),
		round(factors[1]*float64(cut.Height-resized.Height)),
	), nil
}

func round(x float64) int {
	return int(math.Round(x))
}
