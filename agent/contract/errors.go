package contract

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrUnknownSpecialist = errors.New("unknown specialist")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionEnded      = errors.New("session already ended")
	ErrCatalog           = errors.New("invalid tool catalog")
)
