package frontyaml

import "fmt"

// ErrorCode classifies a ParseError so callers can react to specific failure
// modes without matching on message text.
type ErrorCode string

const (
	ErrUnexpectedIndentation ErrorCode = "unexpected-indentation"
	ErrDuplicateKey          ErrorCode = "duplicate-key"
	ErrExpectedColon         ErrorCode = "expected-colon"
	ErrMissingValue          ErrorCode = "missing-value"
	ErrExpectedMappingKey    ErrorCode = "expected-mapping-key"
	ErrExpectedFlowMapEnd    ErrorCode = "expected-flow-map-end"
	ErrExpectedFlowSeqEnd    ErrorCode = "expected-flow-seq-end"
	ErrUnexpectedToken       ErrorCode = "unexpected-token"
)

// ParseError is a positioned diagnostic. Start and End are byte offsets into
// the parsed input forming a half-open range. Errors are accumulated rather
// than thrown: the parser keeps going past them and fills the affected slots
// with best-effort substitutes.
type ParseError struct {
	Message string
	Start   int
	End     int
	Code    ErrorCode
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d (%s)", e.Message, e.Start, e.Code)
}
