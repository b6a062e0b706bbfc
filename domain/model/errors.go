package model

import "errors"

var (
	ErrStackNotFound = errors.New("stack not found")
	ErrStackInvalid  = errors.New("stack invalid")
)
