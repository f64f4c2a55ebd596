// Package l5locate turns a pair of landmarks into a sensor position by
// two-circle trilateration.
//
// Dependency rule: l5locate may depend on l4perception but never on the
// pipeline or storage packages.
package l5locate
