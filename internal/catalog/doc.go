// Package catalog holds the loaded product catalog and derives row identity.
//
// An Index is built once from the rows returned by the tabular reader and is
// replaced wholesale on the next load; rows are never patched in place.
// Every row is kept, including blank ones, so a row index stays stable for
// the lifetime of the Index.
//
// Identity keys are namespaced by the field that produced them:
//
//	primary::890123     barcode / QR payload
//	secondary::42       scale or shelf code
//	name::Milk          product name
//
// so identical text in different fields never collides.
package catalog
