// Package db provides test utilities for database operations.
//
// This file contains test helpers that should be used by all tests
// requiring database access. Using these helpers ensures:
// - In-memory databases for speed
// - Proper cleanup via t.Cleanup()
// - Consistent patterns across the codebase
package db

import (
	"testing"
)

// NewTestDB creates an in-memory tracker database for testing.
// The database is automatically closed when the test completes.
// Schema migrations are applied automatically.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    tdb := db.NewTestDB(t)
//	    // use tdb...
//	}
func NewTestDB(t testing.TB) *TrackerDB {
	t.Helper()

	tdb, err := OpenTrackerInMemory()
	if err != nil {
		t.Fatalf("create test tracker db: %v", err)
	}

	t.Cleanup(func() {
		_ = tdb.Close()
	})

	return tdb
}
