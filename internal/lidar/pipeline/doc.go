// Package pipeline provides orchestration for landmark localization.
//
// It wires the point cloud builder, l4perception and l5locate into a
// single scan-to-position flow and hands each fix to an injected Sink
// (CSV, SQLite, NATS). The pipeline does not own domain logic; it
// delegates to the layer packages and adapters.
//
// This package is the composition root: it imports from the layer
// packages but none of them import pipeline/.
package pipeline
