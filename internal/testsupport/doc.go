// Package testsupport holds helpers shared by package tests: isolated
// configurations rooted in t.TempDir and an opened SQLite store.
package testsupport
