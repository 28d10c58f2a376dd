// Package testutil provides shared test fixtures for verbex's storage,
// indexing, and query packages.
package testutil

import (
	"context"
	"testing"

	"github.com/verbex/verbex/internal/database"
)

// OpenDriver opens a fresh in-memory index scoped to the test name and
// registers its cleanup. Two calls with the same t.Name() would collide
// on the shared in-memory cache, so callers running subtests that each
// need their own index should pass a distinct name via OpenNamedDriver.
func OpenDriver(t *testing.T) *database.Driver {
	t.Helper()
	return OpenNamedDriver(t, t.Name())
}

// OpenNamedDriver opens a fresh in-memory index under name and registers
// its cleanup.
func OpenNamedDriver(t *testing.T, name string) *database.Driver {
	t.Helper()

	ctx := context.Background()
	driver, err := database.Open(ctx, name, database.ModeInMemory, "")
	if err != nil {
		t.Fatalf("failed to open test index: %v", err)
	}

	t.Cleanup(func() {
		driver.Dispose(context.Background())
	})

	return driver
}
