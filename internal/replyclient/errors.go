package replyclient

import "fmt"

// Reasons a reply request can fail. Callers treat them all the same way; the
// reason only makes logs and traces easier to read.
const (
	ReasonBuildRequest     = "build_request"
	ReasonTransport        = "transport"
	ReasonUnexpectedStatus = "unexpected_status"
	ReasonReadBody         = "read_body"
	ReasonMalformedBody    = "malformed_body"
	ReasonMissingResponse  = "missing_response_field"
)

// RequestError reports a failed reply request: a transport error, a non-2xx
// status, or a body without a string "response" field.
type RequestError struct {
	Reason     string
	StatusCode int
	URL        string
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("replyclient: %s (status %d from %s): %v", e.Reason, e.StatusCode, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("replyclient: %s (status %d from %s): %s", e.Reason, e.StatusCode, e.URL, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("replyclient: %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("replyclient: %s", e.Reason)
	}
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RequestError) HTTPStatusCode() int {
	return e.StatusCode
}
