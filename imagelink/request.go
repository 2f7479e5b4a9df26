package imagelink

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// contentTypes lists the supported extensions.
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Watermark describes the image stamped on the bottom right corner.
type Watermark struct {
	Enabled bool    `toml:"enabled"`
	Source  string  `toml:"source"`
	Ratio   float64 `toml:"ratio"`
}

// EffectiveRatio is the ratio of the image width given to the watermark,
// 0.333 when unset.
func (w Watermark) EffectiveRatio() float64 {
	if w.Ratio <= 0 {
		return DefaultWatermarkRatio
	}
	return w.Ratio
}

// Request is a transformation of a source image. Its name, directory and
// extension are derived once from the source reference; a request is never
// modified, WithOptions and WithWatermark return copies.
type Request struct {
	source    string
	name      string
	directory string
	extension string
	options   Options
	watermark Watermark
}

// NewRequest parses a source reference like `/images/photo__w:256-s:c.jpg`.
func NewRequest(source string) (*Request, error) {
	source = strings.Replace(source, "../", "", -1)
	if source == "" {
		return nil, ErrMissingSource
	}

	base := path.Base(source)
	extension := strings.TrimPrefix(path.Ext(base), ".")
	if _, ok := contentTypes[strings.ToLower(extension)]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(formatError, extension))
	}

	parts := strings.Split(strings.TrimSuffix(base, "."+extension), optionSeparator)
	name := parts[0]
	if len(parts) > 1 {
		name = strings.Join(parts[:len(parts)-1], optionSeparator)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no image name in %#v", ErrMissingSource, source)
	}

	options, err := ParseOptions(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOption, err.Error())
	}

	return &Request{
		source:    source,
		name:      name,
		directory: path.Dir(source),
		extension: extension,
		options:   options,
	}, nil
}

// WithOptions returns a copy of the request where the set fields of o
// replace the ones decoded from the source reference.
func (r *Request) WithOptions(o Options) *Request {
	c := *r
	c.options = r.options.Merge(o)
	return &c
}

// WithWatermark returns a copy of the request with the given watermark.
func (r *Request) WithWatermark(w Watermark) *Request {
	c := *r
	c.watermark = w
	return &c
}

// Source is the reference the request was built from.
func (r *Request) Source() string { return r.source }

// Name is the base filename, without options nor extension.
func (r *Request) Name() string { return r.name }

// Directory is the slash separated directory of the source.
func (r *Request) Directory() string { return r.directory }

// Extension is the file extension, as written in the source.
func (r *Request) Extension() string { return r.extension }

// Options are the requested transformations.
func (r *Request) Options() Options { return r.options }

// Watermark is the watermark configuration.
func (r *Request) Watermark() Watermark { return r.watermark }

// Format is the lower case extension.
func (r *Request) Format() string { return strings.ToLower(r.extension) }

// ContentType is the MIME type matching the extension.
func (r *Request) ContentType() string { return contentTypes[r.Format()] }

// HasAlpha tells if the output format keeps transparency.
func (r *Request) HasAlpha() bool {
	f := r.Format()
	return f == "png" || f == "gif"
}

// Filename is the canonical filename: `<name>__<options>.<ext>`, or
// `<name>.<ext>` without options.
func (r *Request) Filename() string {
	filename := r.name
	if suffix := r.options.Encode(); suffix != "" {
		filename += optionSeparator + suffix
	}
	return filename + "." + r.extension
}

// Link is the canonical filename within its directory.
func (r *Request) Link() string {
	return path.Join(r.directory, r.Filename())
}

// SourcePath is the untransformed image file below root.
func (r *Request) SourcePath(root string) string {
	return filepath.Join(root, localDirectory(r.directory), r.name+"."+r.extension)
}

// localDirectory turns a slash separated directory into a relative file
// path that cannot climb above its root.
func localDirectory(directory string) string {
	return filepath.FromSlash(strings.TrimPrefix(path.Clean("/"+directory), "/"))
}
