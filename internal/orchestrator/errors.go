package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/simplylegal/internal/translator"
)

// FailureKind classifies why a chunk could not be translated.
type FailureKind int

const (
	UnexpectedError FailureKind = iota
	Timeout
	ConnectionError
	EncodingError
)

func (k FailureKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ConnectionError:
		return "connection_error"
	case EncodingError:
		return "encoding_error"
	default:
		return "unexpected_error"
	}
}

// Classify maps an error returned by a translator onto a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return UnexpectedError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var statusErr *translator.StatusError
	if errors.As(err, &statusErr) {
		return statusKind(statusErr)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusKind(&translator.StatusError{Code: apiErr.HTTPStatusCode})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusKind(&translator.StatusError{Code: reqErr.HTTPStatusCode})
	}

	if errors.Is(err, translator.ErrEncoding) {
		return EncodingError
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return EncodingError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ConnectionError
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return ConnectionError
	}

	return UnexpectedError
}

func statusKind(e *translator.StatusError) FailureKind {
	switch {
	case e.TimedOut():
		return Timeout
	case e.Unavailable():
		return ConnectionError
	default:
		return UnexpectedError
	}
}

// StatusClientClosedRequest is returned for requests the caller abandoned.
const StatusClientClosedRequest = 499

// Canceled reports whether err ended because the caller's context was
// canceled rather than because a collaborator failed.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// ValidationError rejects a document before any collaborator is called.
type ValidationError struct {
	Reason string
	Length int
	Max    int
}

func (e *ValidationError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("invalid input: %s (%d characters, maximum %d)", e.Reason, e.Length, e.Max)
	}
	return "invalid input: " + e.Reason
}

// ChunkError is a classified translation failure for one chunk. It aborts the
// whole request.
type ChunkError struct {
	Index int
	Kind  FailureKind
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s: %v", e.Index, e.Kind, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// NarrationError is a failed speech synthesis. It only degrades the outcome.
type NarrationError struct {
	Narrator string
	Err      error
}

func (e *NarrationError) Error() string {
	return fmt.Sprintf("narration by %s failed: %v", e.Narrator, e.Err)
}

func (e *NarrationError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response code a server should use for err.
func HTTPStatus(err error) int {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	if Canceled(err) {
		return StatusClientClosedRequest
	}
	var chunkErr *ChunkError
	if errors.As(err, &chunkErr) {
		switch chunkErr.Kind {
		case Timeout, ConnectionError:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}
