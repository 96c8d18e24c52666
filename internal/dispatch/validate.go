package dispatch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// PlaceholderURL is the template value shipped in example configs.
const PlaceholderURL = "https://script.google.com/macros/s/YOUR_SCRIPT_ID/exec"

// ValidateTarget trims raw and checks that it is an absolute URL other than
// the placeholder.
func ValidateTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedTarget)
	}

	if target == PlaceholderURL {
		return "", fmt.Errorf("%w: placeholder URL", ErrMalformedTarget)
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedTarget, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", ErrMalformedTarget, target)
	}

	return target, nil
}

// DecodePayload parses POST body text into a JSON object. Numbers are kept as
// json.Number so they are sent back unchanged.
func DecodePayload(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if body == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrMalformedPayload)
	}

	return body, nil
}
