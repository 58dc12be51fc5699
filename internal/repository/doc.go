// Package repository is the typed façade over the versioned store.
//
// A Repository[T] saves, updates and deletes entities of one type by
// recording bitemporal versions: nothing is overwritten or purged. Updates
// and deletes plan a temporal.Transition and apply it in one store
// transaction, so a reader never observes a half-terminated chain.
//
// Queries are method names ("findTop3ByStatusOrderByAmountDesc") parsed by
// package parser and evaluated by package executor over the entity's
// current versions. Fields are read from the stored payload; the
// pseudo-fields id, businessFrom, businessThru, processingFrom and
// processingThru read the version itself.
package repository
