// Package toolenvelope implements the uniform {status, error?, ...data}
// response shape every transport (MCP, HTTP) returns (spec §7). Grounded on
// the teacher's internal/mcp error-classification switch
// (internal/mcp/tools.go), generalized from the teacher's tool-specific
// error set to the spec's six typed kinds.
package toolenvelope

import (
	"encoding/json"
	"errors"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// Kind is one of the six error kinds named in spec §7.
type Kind string

const (
	InvalidArgument    Kind = "invalid_argument"
	NotFound           Kind = "not_found"
	PreconditionFailed Kind = "precondition_failed"
	Conflict           Kind = "conflict"
	Unavailable        Kind = "unavailable"
	Internal           Kind = "internal"
)

// Error carries a Kind alongside the underlying error, so transports can map
// it to a protocol-specific status without re-parsing strings.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }

// New wraps an error with an explicit Kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Classify maps a raw error from store/document/memory/etc. into a Kind,
// following the same errors.Is-based dispatch style as the teacher's
// tool-error switch, since none of these packages import toolenvelope
// (avoiding a dependency cycle) and instead return plain sentinel-wrapped
// errors.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, document.ErrInvalidDocument):
		return InvalidArgument
	case errors.Is(err, store.ErrNotFound):
		return NotFound
	case errors.Is(err, store.ErrUnavailable):
		return Unavailable
	case errors.Is(err, store.ErrEmbedFailed):
		return Unavailable
	case errors.Is(err, store.ErrInvalidFilter):
		return InvalidArgument
	default:
		var e *Error
		if errors.As(err, &e) {
			return e.Kind
		}
		return Internal
	}
}

// Envelope is the JSON-encodable response shape every operation returns.
type Envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Kind   Kind            `json:"kind,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Ok wraps a successful result payload.
func Ok(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Status: "ok", Data: raw}, nil
}

// Err builds an error envelope from any error, classifying it if it isn't
// already a *Error.
func Err(err error) Envelope {
	kind := Classify(err)
	if kind == "" {
		kind = Internal
	}
	return Envelope{Status: "error", Error: err.Error(), Kind: kind}
}
