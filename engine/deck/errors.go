package deck

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGroupsFound is returned when the source has no group definitions.
	ErrNoGroupsFound = errors.New("no group definitions found")
	// ErrInsufficientGroups matches every *InsufficientGroupsError.
	ErrInsufficientGroups = errors.New("insufficient groups")
	// ErrNoDeckDefinition matches every *NoDeckDefinitionError.
	ErrNoDeckDefinition = errors.New("no deck definition")
)

// InsufficientGroupsError reports a random deck request for more groups than
// remain after deduplication and exclusion.
type InsufficientGroupsError struct {
	Available int
	Requested int
}

func (e *InsufficientGroupsError) Error() string {
	return fmt.Sprintf("insufficient groups: %d available, %d requested", e.Available, e.Requested)
}

func (e *InsufficientGroupsError) Is(target error) bool { return target == ErrInsufficientGroups }

// NoDeckDefinitionError reports a named deck the source does not know.
type NoDeckDefinitionError struct {
	ID string
}

func (e *NoDeckDefinitionError) Error() string {
	return fmt.Sprintf("no deck definition %q", e.ID)
}

func (e *NoDeckDefinitionError) Is(target error) bool { return target == ErrNoDeckDefinition }
