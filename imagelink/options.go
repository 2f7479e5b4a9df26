package imagelink

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ResizeStyle tells how the source is fitted into the requested size.
type ResizeStyle string

// Resize styles.
const (
	// StyleResize scales the whole source to the exact target size.
	StyleResize ResizeStyle = "r"
	// StyleCut scales uniformly and crops what overflows the target.
	StyleCut ResizeStyle = "c"
)

// Align is the anchor of the visible window inside an oversized cut.
type Align string

// Align anchors, vertical position first.
const (
	AlignTopLeft     Align = "tl"
	AlignTopMid      Align = "tm"
	AlignTopRight    Align = "tr"
	AlignMidLeft     Align = "ml"
	AlignMidMid      Align = "mm"
	AlignMidRight    Align = "mr"
	AlignBottomLeft  Align = "bl"
	AlignBottomMid   Align = "bm"
	AlignBottomRight Align = "br"
)

// Defaults applied to unset options.
const (
	DefaultQuality        = 75
	DefaultStyle          = StyleResize
	DefaultAlign          = AlignMidMid
	DefaultWatermarkRatio = 0.333
)

// option keys, in the order they appear in a filename.
const (
	optionWidth    = "w"
	optionHeight   = "h"
	optionQuality  = "q"
	optionRotation = "r"
	optionStyle    = "s"
	optionAlign    = "a"
)

// optionSeparator splits the name from the options, tokenSeparator splits
// the options.
const (
	optionSeparator = "__"
	tokenSeparator  = "-"
)

var optionPrefix = regexp.MustCompile(`^[a-z]:`)

// Options are the transformations encoded in a filename. Zero means unset
// for every field; see Canonical.
type Options struct {
	Width    int         `mapstructure:"w" json:"w,omitempty"`
	Height   int         `mapstructure:"h" json:"h,omitempty"`
	Quality  int         `mapstructure:"q" json:"q,omitempty"`
	Rotation int         `mapstructure:"r" json:"r,omitempty"`
	Style    ResizeStyle `mapstructure:"s" json:"s,omitempty"`
	Align    Align       `mapstructure:"a" json:"a,omitempty"`
}

// DecodeOptions extracts the raw option mapping out of a filename such as
// `photo__w:256-s:c-a:mm.jpg`. It is lenient: a filename without options
// gives an empty mapping, unknown keys and malformed values are skipped.
func DecodeOptions(filename string) map[string]interface{} {
	options := make(map[string]interface{})

	base := path.Base(filename)
	base = strings.TrimSuffix(base, path.Ext(base))

	parts := strings.Split(base, optionSeparator)
	if len(parts) < 2 {
		return options
	}

	for _, token := range strings.Split(parts[len(parts)-1], tokenSeparator) {
		if token == "" {
			continue
		}

		key := token[:1]
		value := optionPrefix.ReplaceAllString(token, "")

		switch key {
		case optionWidth, optionHeight, optionQuality, optionRotation:
			n, ok := toInt(value)
			if !ok {
				debug("Skipping option %#v", token)
				continue
			}
			options[key] = n
		case optionStyle, optionAlign:
			options[key] = value
		default:
			debug("Unknown option %#v", token)
		}
	}

	return options
}

// ParseOptions is the typed version of DecodeOptions.
func ParseOptions(filename string) (Options, error) {
	var o Options
	err := mapstructure.Decode(DecodeOptions(filename), &o)
	return o, err
}

func toInt(value string) (int, bool) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Canonical collapses the values equal to their default to zero, which is
// what gets written into a filename.
func (o Options) Canonical() Options {
	if o.Quality == DefaultQuality {
		o.Quality = 0
	}
	if o.Style == DefaultStyle {
		o.Style = ""
	}
	if o.Align == DefaultAlign {
		o.Align = ""
	}
	return o
}

// Encode writes the options suffix, without the leading separator, in the
// w, h, q, r, s, a order. Unset and default options are omitted.
func (o Options) Encode() string {
	c := o.Canonical()
	tokens := make([]string, 0, 6)

	for _, n := range []struct {
		key   string
		value int
	}{
		{optionWidth, c.Width},
		{optionHeight, c.Height},
		{optionQuality, c.Quality},
		{optionRotation, c.Rotation},
	} {
		if n.value != 0 {
			tokens = append(tokens, fmt.Sprintf("%s:%d", n.key, n.value))
		}
	}

	if c.Style != "" {
		tokens = append(tokens, fmt.Sprintf("%s:%s", optionStyle, c.Style))
	}
	if c.Align != "" {
		tokens = append(tokens, fmt.Sprintf("%s:%s", optionAlign, c.Align))
	}

	return strings.Join(tokens, tokenSeparator)
}

// Merge returns o where every field set in override replaces its value.
func (o Options) Merge(override Options) Options {
	if override.Width != 0 {
		o.Width = override.Width
	}
	if override.Height != 0 {
		o.Height = override.Height
	}
	if override.Quality != 0 {
		o.Quality = override.Quality
	}
	if override.Rotation != 0 {
		o.Rotation = override.Rotation
	}
	if override.Style != "" {
		o.Style = override.Style
	}
	if override.Align != "" {
		o.Align = override.Align
	}
	return o
}

// Validate checks the enumerated and bounded options.
func (o Options) Validate() error {
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(sizeError, fmt.Sprintf("%dx%d", o.Width, o.Height)))
	}

	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(qualityError, o.Quality))
	}

	if o.Rotation < 0 || o.Rotation > 360 {
		return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(rotationError, o.Rotation))
	}

	switch o.Style {
	case "", StyleResize, StyleCut:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(styleError, string(o.Style)))
	}

	if o.Align != "" {
		if _, ok := anchors[o.Align]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidAlign, fmt.Sprintf(alignError, string(o.Align)))
		}
	}

	return nil
}

// EffectiveQuality is the quality, 75 when unset.
func (o Options) EffectiveQuality() int {
	if o.Quality == 0 {
		return DefaultQuality
	}
	return o.Quality
}

// EffectiveAlign is the anchor, mid-mid when unset.
func (o Options) EffectiveAlign() Align {
	if o.Align == "" {
		return DefaultAlign
	}
	return o.Align
}

// IsCut reports whether the cut style is requested.
func (o Options) IsCut() bool {
	return o.Style == StyleCut
}
