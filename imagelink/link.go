package imagelink

import (
	"fmt"
	"strings"
)

// BuildLink validates the options of the request and returns the link to the
// transformed image, e.g. `/images/photo__w:256-h:256-s:c.jpg`.
func BuildLink(r *Request) (string, error) {
	if err := r.Options().Validate(); err != nil {
		return "", err
	}

	// Without options the last `__` of the name would be read back as the
	// option separator.
	if r.Options().Encode() == "" && strings.Contains(r.Name(), optionSeparator) {
		return "", fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(nameError, r.Name()))
	}

	link := r.Link()
	debug("Link %#v ~> %#v", r.Source(), link)
	return link, nil
}

// CreateLink builds the link to source transformed by o. Options already
// encoded in source are kept unless o overrides them.
func CreateLink(source string, o Options) (string, error) {
	r, err := NewRequest(source)
	if err != nil {
		return "", err
	}
	return BuildLink(r.WithOptions(o))
}
