package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	user := SeedUser(t, pool)

	// Verify user exists in DB via SELECT.
	var name string
	err := pool.QueryRow(
		context.Background(),
		`SELECT name FROM users WHERE id = $1`,
		user.ID,
	).Scan(&name)
	if err != nil {
		t.Fatalf("expected user in DB, got error: %v", err)
	}

	if name != user.Name {
		t.Fatalf("expected name %q, got %q", user.Name, name)
	}
}
