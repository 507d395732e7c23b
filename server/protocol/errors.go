package protocol

import "errors"

// errors for parsing and building
var (
	ErrMalformed          = errors.New("malformed request")
	ErrUnsupportedVersion = errors.New("unsupported http version")
	ErrUnsupportedMethod  = errors.New("unsupported method")
	ErrTooLarge           = errors.New("request too large")
	ErrStatus             = errors.New("unsupported status code")
)
