// Package dbtest provides a db.Store backed by an in-process redis server for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"MashinatoBot/internal/db"
)

// New returns a Store connected to a fresh in-process redis server, closed when the test ends
func New(t testing.TB) (*db.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := db.Open(context.Background(), db.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}
