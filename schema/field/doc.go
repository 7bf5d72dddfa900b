// Package field provides per-field option builders for model registration.
//
// A field's storage shape (direct property, embedded blob, or satellite
// node) follows from its Go type; the builders here layer the options a
// type cannot express: storage name overrides, indexing, requiredness,
// defaults, and custom relationship tokens.
//
//	model, err := schema.Node(Person{},
//	    schema.WithField(field.Simple("name").Index()),
//	    schema.WithField(field.Related("employer").Token("WORKS_AT")),
//	)
package field
