package expander

import "errors"

var (
	// ErrUnsupportedField is returned for fields that are neither single
	// nor multi-line text fields.
	ErrUnsupportedField = errors.New("expander: unsupported field kind")
	// ErrNoParent is returned when a mirror needs attaching but the field
	// has no container.
	ErrNoParent = errors.New("expander: field has no parent")

	ErrNoLoop          = errors.New("expander: no event loop")
	ErrAlreadyDefined  = errors.New("expander: name already defined")
	ErrNotDefined      = errors.New("expander: name not defined")
	ErrAlreadyAttached = errors.New("expander: field already has an expander")
)
