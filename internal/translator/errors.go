package translator

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/valpere/simplylegal/internal/postprocess"
)

// ErrEncoding reports a response that could not be turned into usable text.
var ErrEncoding = errors.New("response could not be decoded as text")

// StatusError is a non-2xx reply from an LLM backend.
type StatusError struct {
	Service string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.Code)
}

// Unavailable reports whether the status means the backend could not serve
// the request at all (gateway or overload errors).
func (e *StatusError) Unavailable() bool {
	return e.Code == http.StatusBadGateway || e.Code == http.StatusServiceUnavailable
}

// TimedOut reports whether the backend or a gateway gave up waiting.
func (e *StatusError) TimedOut() bool {
	return e.Code == http.StatusGatewayTimeout || e.Code == http.StatusRequestTimeout
}

// cleanOutput runs raw model output through postprocess.Clean and rejects
// anything that is not non-empty UTF-8.
func cleanOutput(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrEncoding)
	}
	text := postprocess.Clean(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrEncoding)
	}
	return text, nil
}
