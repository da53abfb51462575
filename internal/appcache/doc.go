// Package appcache declares every cache variant used by mediatrack together
// with its payload shape, value type, and lifetime policy.
//
// Adding a variant means adding one Define call here; the compiler then
// enforces that every Set and Get for it uses the declared value type.
package appcache
