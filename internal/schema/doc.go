// Package schema loads entity schemas and turns them into repository
// descriptors for dynamic records.
//
// A schema names each entity, optionally its id sequence, and its payload
// fields with their types. Schemas are written in CUE (compiled with the
// CUE SDK, so constraints and references work) or in YAML. Both forms share
// one shape:
//
//	entity: order: fields: {status: string, amount: int}
//
// Records of a schema entity are value.Objects. Entity.Descriptor checks
// and coerces them on write; Entity.ParseArgs types command-line query
// arguments by the fields they are compared with.
package schema
