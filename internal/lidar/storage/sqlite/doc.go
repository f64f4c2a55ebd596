// Package sqlite persists localization runs, position fixes and odometry
// samples in SQLite.
//
// All database reads and writes for the localization pipeline belong here
// rather than in the layer packages, which keeps the domain logic free of
// SQL and lets tests swap storage for in-memory sinks.
package sqlite
