package models

import "fmt"

// ValidationError is returned when a stop or stop record does not
// satisfy the requirements of its kind, either on save or when
// decoding rows loaded from storage.
type ValidationError struct {
	StopID string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.StopID == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for stop %s: %s", e.StopID, e.Reason)
}
