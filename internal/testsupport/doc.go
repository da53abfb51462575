// Package testsupport provides shared fixtures for package tests: isolated
// configs rooted in t.TempDir, opened cache stores, and a manual clock.
package testsupport
