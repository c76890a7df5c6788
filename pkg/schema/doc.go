// Package schema describes the parameters a runtime instance holds.
//
// A Schema is an immutable, ordered set of Parameters. Each Parameter declares
// its expected kind, its default, a total transform chain, synchronous and
// asynchronous validators, and the conditions under which it is visible or
// enabled. Descriptor is the concrete implementation:
//
//	opacity := schema.Define("opacity", value.KindFloat,
//	    schema.Default(value.Float(1)),
//	    schema.Transforms(schema.Clamp(0, 1)),
//	)
//	email := schema.Define("email", value.KindText,
//	    schema.Validators(schema.Required(), schema.Email()),
//	)
//	s, err := schema.New(opacity, email)
//
// Schemas can also be loaded from YAML or JSON documents (LoadFile, Parse).
// Validators and transforms a document names but the package does not know
// are resolved through a Catalog.
//
// Validation failures are reported as FieldErrors carrying the parameter key,
// a machine-readable code and a message.
package schema
