// Package scenario runs scripted repository operations from YAML files.
//
// A scenario names a schema and one of its entities, then lists steps
// (save, update, delete, get, query, history, advance) with optional
// expectations. Each run uses a fresh SQLite store and a step clock, so
// ids and processing instants are the same on every run and traces can be
// compared against golden files.
//
// Steps bind returned entities with "as: name". Later steps reference them
// as "$name" for ids, or "$name.business" and "$name.processing" for the
// start of the bound version's intervals.
package scenario
