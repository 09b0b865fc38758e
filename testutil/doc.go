// Package testutil holds shared fakes for package tests: a miniredis-backed Redis
// service, an in-memory FileStore, and a scripted FormatParser.
package testutil
