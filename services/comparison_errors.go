package services

// ComparisonErrorKind classifies comparison failures for programmatic
// handling. Every kind implies a different remediation, so they are never
// collapsed into one another.
type ComparisonErrorKind string

const (
	// KindValidationError: caller-supplied input is incomplete or malformed;
	// locally correctable, never retried by the system.
	KindValidationError ComparisonErrorKind = "VALIDATION_ERROR"
	// KindStaleBaseline: the baseline exists but its image payload is no
	// longer resident; the user must re-upload the baseline image.
	KindStaleBaseline ComparisonErrorKind = "STALE_BASELINE"
	// KindServiceUnavailable: the analysis engine is down or unreachable.
	KindServiceUnavailable ComparisonErrorKind = "SERVICE_UNAVAILABLE"
	// KindTimeout: the analysis engine did not answer within the deadline.
	KindTimeout ComparisonErrorKind = "TIMEOUT"
)

// ComparisonError is a typed failure returned by the comparison service.
// Message is human-readable and names the remediation where one exists.
type ComparisonError struct {
	Kind    ComparisonErrorKind
	Message string
}

func (e *ComparisonError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newComparisonError(kind ComparisonErrorKind, message string) *ComparisonError {
	return &ComparisonError{Kind: kind, Message: message}
}
