package imagelink

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by the forward (serve) and inverse (link) paths. Call sites
// wrap them with some context, use errors.Is to match.
var (
	ErrMissingSource          = errors.New("no source image reference")
	ErrSourceNotFound         = errors.New("source image not found")
	ErrMissingDimension       = errors.New("missing dimension")
	ErrInvalidOption          = errors.New("invalid option")
	ErrInvalidAlign           = fmt.Errorf("%w: resize align", ErrInvalidOption)
	ErrDecode                 = errors.New("cannot decode image")
	ErrWatermarkSourceMissing = errors.New("watermark source is not set")
	ErrEncode                 = errors.New("cannot encode image")
)

// error messages
var styleError = "resize style %#v is not one of r, c"
var alignError = "resize align %#v is not one of tl, tm, tr, ml, mm, mr, bl, bm, br"
var qualityError = "quality %#v is not within 0-100"
var rotationError = "rotation %#v is not within 0-360"
var sizeError = "size %#v is negative"
var formatError = "extension %#v is not one of jpg, jpeg, png, gif"
var maxSizeError = "size %vx%v is out of the limits %vx%v (or area %v)"
var nameError = "name %#v holds the option separator, it needs at least one option"

// HTTPError represents a HTTP error to be shown to the user.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error formats the HTTPError message.
func (e HTTPError) Error() string {
	return fmt.Sprintf("%d (%s) %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// NewHTTPError translates an error of the forward path into what the user
// sees.
func NewHTTPError(err error) HTTPError {
	var e HTTPError
	if errors.As(err, &e) {
		return e
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSourceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrMissingSource),
		errors.Is(err, ErrMissingDimension),
		errors.Is(err, ErrInvalidOption):
		status = http.StatusBadRequest
	case errors.Is(err, ErrDecode):
		status = http.StatusUnsupportedMediaType
	}

	return HTTPError{status, err.Error()}
}

// errorKind labels an error for the metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingSource):
		return "missing_source"
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrMissingDimension):
		return "missing_dimension"
	case errors.Is(err, ErrInvalidAlign):
		return "invalid_align"
	case errors.Is(err, ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrWatermarkSourceMissing):
		return "watermark_source_missing"
	case errors.Is(err, ErrEncode):
		return "encode"
	}
	return "other"
}
