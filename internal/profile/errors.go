package profile

import "errors"

// Common profile errors
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrDecode            = errors.New("decoding document")
	ErrDuplicateNetwork  = errors.New("duplicate network")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrNetworkNotFound   = errors.New("network not found")
)
