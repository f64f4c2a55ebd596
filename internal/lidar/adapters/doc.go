// Package adapters contains file IO boundary implementations for the
// localization pipeline.
//
// Adapter code translates between external formats and internal domain
// types and delegates all localization logic to the layer packages.
package adapters
