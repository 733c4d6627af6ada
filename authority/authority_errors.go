package authority

import "fmt"

// ServiceError is the protocol-level error envelope the assessment service
// returns instead of an assessment: a numeric code and a message, with no
// assessment details and no status messages. It is an unexpected-server-
// shape failure, never a validation outcome.
type ServiceError struct {
	Code    string
	Message string
	RawBody string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("the assessment service returned an unexpected response: code %s: %s", e.Code, e.Message)
}

// StatusError is an HTTP reply outside the 2xx range. The raw body is kept
// for diagnostics; the service writes useful detail there.
type StatusError struct {
	StatusCode int
	RawBody    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assessment service returned status %d: %s", e.StatusCode, e.RawBody)
}
