package graph

import "errors"

var (
	ErrUnknownReference = errors.New("reference to a declaration not registered earlier")
	ErrDuplicateURN     = errors.New("duplicate declaration")
	ErrCycle            = errors.New("declaration creates a dependency cycle")
	ErrInvalidName      = errors.New("invalid declaration name")
	ErrDuplicateExport  = errors.New("duplicate stack output")
)
