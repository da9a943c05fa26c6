package page

import "errors"

var (
	ErrDriverClosed      = errors.New("page driver closed")
	ErrPageClosed        = errors.New("page closed")
	ErrElementNotFound   = errors.New("element not found")
	ErrAmbiguousSelector = errors.New("selector matched multiple elements")
)
