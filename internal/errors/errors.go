// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// ErrMissingBloodGroup is returned when a campaign is requested without a group.
var ErrMissingBloodGroup = errors.New("blood_group is required")

// ErrNoDonorsFound is a sentinel error
type ErrNoDonorsFound struct {
    BloodGroup string
}

func (e *ErrNoDonorsFound) Error() string {
    return fmt.Sprintf("no %s donors found", e.BloodGroup)
}

// Helper constructor
func NewNoDonorsFound(group string) error {
    return &ErrNoDonorsFound{BloodGroup: group}
}
