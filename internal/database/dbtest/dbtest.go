// Package dbtest opens migrated in-memory SQLite databases for store tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patente-app/backend/internal/database"
	"github.com/stretchr/testify/require"
)

var seq atomic.Int64

// New returns a fresh, migrated database private to t.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user row and returns its id.
func CreateUser(t testing.TB, db *sqlx.DB, email string) int64 {
	t.Helper()
	var id int64
	now := time.Now().UTC()
	err := db.QueryRowx(db.Rebind(
		`INSERT INTO users (email, name, username, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		email, "Test User", email, "x", now, now,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
