// Package query turns whitelisted list parameters into store predicates and
// residual in-memory filters.
//
// Equality and membership predicates are collected in a Spec and pushed down
// to bun. Keyword and bucket filters cannot be expressed by the store; they
// are Residual predicates applied to the page after it was fetched, so page
// counts describe the store-level page rather than the filtered result.
package query
