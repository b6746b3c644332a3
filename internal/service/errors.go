package service

import (
	"errors"

	"meter_reading/internal/lease"
	"meter_reading/internal/validation"
)

// Domain errors surfaced to the transport layer.
var (
	ErrSessionNotFound = errors.New("installation session not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrMeterNotFound   = errors.New("meter not found")
	ErrPipelineBusy    = lease.ErrBusy
	ErrInvalidInput    = errors.New("invalid input")

	ErrSessionTerminal = validation.ErrSessionTerminal
	ErrRunCanceled     = validation.ErrRunCanceled
)
