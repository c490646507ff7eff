// Package dbtest opens throwaway SQLite databases with the full schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"academy-backend/internal/platform/config"
	"academy-backend/internal/platform/db"
)

// Open returns a migrated database living in t.TempDir(). It is closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.Connect(config.Database{
		Driver:       config.DriverSQLite3,
		Path:         filepath.Join(t.TempDir(), "academy.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	})
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(conn, config.DriverSQLite3, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// InsertUser adds a user with password "secret123" and returns its id.
func InsertUser(t testing.TB, conn *sql.DB, name, email, role string) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	res, err := conn.ExecContext(context.Background(),
		`INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)`,
		name, email, string(hash), role)
	if err != nil {
		t.Fatalf("insert user %s: %v", email, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// InsertBatch adds a batch spanning the whole of 2025.
func InsertBatch(t testing.TB, conn *sql.DB, name, status string) int64 {
	t.Helper()
	res, err := conn.ExecContext(context.Background(),
		`INSERT INTO batches (name, start_date, end_date, status) VALUES (?, '2025-01-01', '2025-12-31', ?)`,
		name, status)
	if err != nil {
		t.Fatalf("insert batch %s: %v", name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Enroll creates a student user and attaches it to batchID.
func Enroll(t testing.TB, conn *sql.DB, batchID int64, name, email string) int64 {
	t.Helper()
	id := InsertUser(t, conn, name, email, "student")
	if _, err := conn.ExecContext(context.Background(),
		`INSERT INTO student_details (user_id, batch_id) VALUES (?, ?)`, id, batchID); err != nil {
		t.Fatalf("enroll %s: %v", email, err)
	}
	return id
}

// Count runs a SELECT COUNT(*) style query.
func Count(t testing.TB, conn *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := conn.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
