package normalize

import "errors"

var (
	ErrNoRecord      = errors.New("no record found in response")
	ErrInvalidRecord = errors.New("record is missing required fields")
)
