// Package querysql renders parsed query methods as SQLite statements over
// the versions table.
//
// The statements select what the in-memory executor selects: processing
// edge points whose business interval contains the query's business
// instant, filtered by the method's conditions. They back the explain
// command and can be run directly against a store.
//
// Payload fields are read with json_extract. LIKE uses SQLite's operator,
// which folds ASCII case unless case_sensitive_like is set.
package querysql
