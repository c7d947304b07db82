package alert

import (
	"errors"
	"fmt"
)

var ErrCredentialsMissing = errors.New("twilio credentials are not set")

// DecodeError means the payload bytes are not valid UTF-8 text.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode order event: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// ParseError means the text is not a usable order record. Field is empty when
// the record as a whole is malformed.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse order event: %v", e.Err)
	}
	return fmt.Sprintf("parse order event: field %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
