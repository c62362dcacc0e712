package scans

import "errors"

// Error taxonomy untuk scan store. Inner layers wrap these with %w and
// detail; callers branch with errors.Is only.
var (
	ErrValidation    = errors.New("invalid input")
	ErrNotFound      = errors.New("scan not found")
	ErrStorage       = errors.New("storage failure")
	ErrSerialization = errors.New("serialization failure")
	ErrAnalysis      = errors.New("analysis failure")
	ErrPersistence   = errors.New("persistence failure")
)
