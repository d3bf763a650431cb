package gemini

import "fmt"

// TransportError means the upstream API could not be reached or its
// response could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gemini transport: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError is a non-200 reply from the upstream API. Body holds the
// decoded JSON payload (nil when it was not JSON) and Raw the bytes as sent.
type UpstreamError struct {
	StatusCode int
	Body       any
	Raw        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini api status %d: %s", e.StatusCode, truncate(string(e.Raw), 200))
}

// MalformedResponseError is a 200 reply without generated text.
type MalformedResponseError struct {
	Body any
}

func (e *MalformedResponseError) Error() string {
	return "gemini response missing candidate text"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
