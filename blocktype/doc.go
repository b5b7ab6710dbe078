// Package blocktype defines block types and the registry that holds them.
//
// A Definition declares a block's attribute schema, its supports flags and
// an optional render callback. PrepareAttributes validates raw delimiter
// attributes against the schema, substituting defaults for invalid or
// missing values and reporting every change as a ValidationIssue.
//
// Registry is an explicit value owned by the caller. Registration failures
// are returned as *RegistrationError and reported through
// observe.DoingItWrong; they never panic.
package blocktype
