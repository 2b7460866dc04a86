package ai

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---
// Every failure mode of the generation pipeline is a typed result. The
// orchestrator recovers from all of these locally by falling back to the
// deterministic generator; none of them should ever reach an API response.
var (
	ErrEmptyResponse = errors.New("completion returned an empty response")
	ErrTruncated     = errors.New("completion output ended before the JSON object closed")
	ErrTimeout       = errors.New("completion request timed out")
)

// NetworkError wraps a transport-level failure from the completion endpoint.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedJSONError reports the byte offset where decoding failed together
// with a snippet of the surrounding text, so failures are debuggable from
// logs without dumping the whole completion.
type MalformedJSONError struct {
	Pos     int64
	Snippet string
	Err     error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed plan JSON at offset %d (near %q): %v", e.Pos, e.Snippet, e.Err)
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// SchemaError reports a structural validation failure on a decoded plan.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "plan schema violation: " + e.Reason
}
