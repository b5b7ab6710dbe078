package blocktype

import (
	"errors"
	"fmt"
)

// Registration errors.
var (
	// ErrInvalidName indicates a missing block type name.
	ErrInvalidName = errors.New("blocktype: block type names must be strings")

	// ErrNameNotLowercase indicates a name containing uppercase characters.
	ErrNameNotLowercase = errors.New("blocktype: block type names must not contain uppercase characters")

	// ErrMissingNamespace indicates a name without exactly one namespace
	// separator or with characters outside [a-z0-9-].
	ErrMissingNamespace = errors.New("blocktype: block type names must contain a namespace prefix, e.g. my-plugin/my-custom-block-type")

	// ErrAlreadyRegistered indicates a duplicate registration.
	ErrAlreadyRegistered = errors.New("blocktype: block type is already registered")

	// ErrNotRegistered indicates an unknown block type.
	ErrNotRegistered = errors.New("blocktype: block type is not registered")

	// ErrInvalidAttributeSchema indicates an attribute schema that cannot
	// be compiled.
	ErrInvalidAttributeSchema = errors.New("blocktype: invalid attribute schema")

	// ErrInvalidMetadata indicates a block.json that fails validation.
	ErrInvalidMetadata = errors.New("blocktype: invalid block metadata")
)

// RegistrationError reports a failed Register or Unregister call.
type RegistrationError struct {
	Op   string // "register" or "unregister"
	Name string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("blocktype: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }
