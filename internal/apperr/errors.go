// Package apperr holds the sentinel errors shared across service, API and MCP layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNoVault        = errors.New("vault not found")
	ErrPeriodDisabled = errors.New("period disabled")
	ErrInvalidInput   = errors.New("invalid input")
)
