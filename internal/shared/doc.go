// Package shared provides common utilities and test helpers used across the
// FleetPulse codebase. It serves as a central location for functionality that
// doesn't belong to any specific domain or architectural layer.
//
// # Structure
//
// - testutil: Testing utilities, currently the buffered slog handler used to
// assert on structured log output in package tests.
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
//
// It should NOT contain business logic, external dependencies beyond the
// standard library, or circular dependencies with other internal packages.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, captured := testutil.NewTestLogger(t)
//	    thing := NewThing(logger)
//	    thing.Do()
//	    testutil.AssertLogContains(t, captured, slog.LevelInfo, "did the thing")
//	}
package shared
