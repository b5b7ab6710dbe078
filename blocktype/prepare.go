package blocktype

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	neturl "net/url"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jonwraymond/blockpress/attr"
)

// IssueKind classifies a change made while preparing attributes.
type IssueKind string

const (
	// IssueInvalid marks a declared attribute whose value failed validation.
	IssueInvalid IssueKind = "invalid"

	// IssueUndeclared marks a raw attribute the schema does not declare.
	IssueUndeclared IssueKind = "undeclared"

	// IssueSchema marks an attribute schema that failed to compile; values
	// of that attribute are kept unchecked.
	IssueSchema IssueKind = "schema"
)

// ValidationIssue describes a raw attribute that did not make it into the
// prepared attributes unchanged.
type ValidationIssue struct {
	Attribute string
	Kind      IssueKind
	Value     attr.Value

	// Reason is the validator's message for invalid values.
	Reason string

	// Substituted is set when the schema default replaced the value.
	Substituted bool
}

func (i ValidationIssue) String() string {
	switch {
	case i.Kind == IssueUndeclared:
		return fmt.Sprintf("%s: undeclared attribute dropped", i.Attribute)
	case i.Kind == IssueSchema:
		return "schema: " + i.Reason
	case i.Substituted:
		return fmt.Sprintf("%s: %s (default used)", i.Attribute, i.Reason)
	default:
		return fmt.Sprintf("%s: %s (dropped)", i.Attribute, i.Reason)
	}
}

// Prepared is the result of PrepareAttributes.
type Prepared struct {
	Attributes *attr.Object
	Issues     []ValidationIssue
}

// OK reports whether the raw attributes were accepted unchanged apart from
// added defaults.
func (p Prepared) OK() bool { return len(p.Issues) == 0 }

// PrepareAttributes validates raw attributes against the schema.
//
// Declared attributes that validate are kept. Invalid ones are replaced by
// their default, or dropped when there is none. Declared attributes absent
// from raw receive their default when one exists. Undeclared attributes
// are kept only when the block type was registered without a schema of
// its own. raw is not modified.
func (d *Definition) PrepareAttributes(raw *attr.Object) Prepared {
	d.setup()
	validators, err := d.compiledValidators()

	out := attr.NewObject()
	var issues []ValidationIssue
	if err != nil {
		issues = append(issues, ValidationIssue{Kind: IssueSchema, Reason: err.Error()})
	}

	raw.Range(func(key string, v attr.Value) bool {
		spec, declared := d.Attributes[key]
		if !declared {
			if d.passThrough {
				out.Set(key, v)
			} else {
				issues = append(issues, ValidationIssue{Attribute: key, Kind: IssueUndeclared, Value: v})
			}
			return true
		}
		if err := validateValue(validators[key], v); err != nil {
			issues = append(issues, ValidationIssue{
				Attribute:   key,
				Kind:        IssueInvalid,
				Value:       v,
				Reason:      err.Error(),
				Substituted: spec.Default != nil,
			})
			return true
		}
		out.Set(key, v)
		return true
	})

	for _, key := range d.attributeNames() {
		spec := d.Attributes[key]
		if spec.Default == nil || out.Has(key) {
			continue
		}
		if obj, ok := spec.Default.AsObject(); ok {
			out.Set(key, attr.ObjectValue(obj.Clone()))
		} else {
			out.Set(key, *spec.Default)
		}
	}

	return Prepared{Attributes: out, Issues: issues}
}

// attributeNames returns the declared attribute names in sorted order.
func (d *Definition) attributeNames() []string {
	names := make([]string, 0, len(d.Attributes))
	for k := range d.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// validateValue checks v against schema; a nil schema accepts anything.
func validateValue(schema *jsonschema.Schema, v attr.Value) error {
	if schema == nil {
		return nil
	}
	if err := schema.Validate(v.Interface()); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return errors.New(leafMessage(verr))
		}
		return err
	}
	return nil
}

// leafMessage returns the innermost validation message.
func leafMessage(e *jsonschema.ValidationError) string {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}
	return e.Message
}

// compiledValidators returns one schema per declared attribute, compiling
// them on first use and again after the attribute set changes.
func (d *Definition) compiledValidators() (map[string]*jsonschema.Schema, error) {
	d.compileMu.Lock()
	defer d.compileMu.Unlock()
	if !d.compiled {
		d.validators, d.compileErr = compileAttributeSchemas(d.Name, d.Attributes)
		d.compiled = true
	}
	return d.validators, d.compileErr
}

// jsonTypes maps declared attribute types to JSON Schema types.
var jsonTypes = map[string]string{
	"string":    "string",
	"rich-text": "string",
	"boolean":   "boolean",
	"number":    "number",
	"integer":   "integer",
	"object":    "object",
	"array":     "array",
	"null":      "null",
}

func compileAttributeSchemas(block string, specs map[string]AttributeSpec) (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	out := make(map[string]*jsonschema.Schema, len(specs))
	var errs []error

	for name, spec := range specs {
		doc := attr.NewObject()
		if len(spec.Type) > 0 {
			types := make([]attr.Value, 0, len(spec.Type))
			for _, t := range spec.Type {
				jt, ok := jsonTypes[t]
				if !ok {
					errs = append(errs, fmt.Errorf("%w: attribute %q has unknown type %q", ErrInvalidAttributeSchema, name, t))
					continue
				}
				types = append(types, attr.String(jt))
			}
			doc.Set("type", attr.Array(types...))
		}
		if len(spec.Enum) > 0 {
			doc.Set("enum", attr.Array(spec.Enum...))
		}
		if doc.Len() == 0 {
			continue
		}

		data, err := json.Marshal(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		url := fmt.Sprintf("blocktype://%s/attributes/%s.json", block, neturl.PathEscape(name))
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			errs = append(errs, fmt.Errorf("%w: attribute %q: %v", ErrInvalidAttributeSchema, name, err))
			continue
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: attribute %q: %v", ErrInvalidAttributeSchema, name, err))
			continue
		}
		out[name] = schema
	}

	return out, errors.Join(errs...)
}
