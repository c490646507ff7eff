package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"

	"academy-backend/internal/platform/config"
	"academy-backend/internal/platform/db"
	"academy-backend/internal/platform/db/dbtest"
)

func TestDSN(t *testing.T) {
	dsn, err := db.DSN(config.Database{Driver: config.DriverSQLite3, Path: "/tmp/a.db"})
	if err != nil {
		t.Fatal(err)
	}
	if want := "file:/tmp/a.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"; dsn != want {
		t.Errorf("dsn = %q, want %q", dsn, want)
	}

	if _, err := db.DSN(config.Database{Driver: "oracle"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestDSN_MySQLEscapesCredentials(t *testing.T) {
	dsn, err := db.DSN(config.Database{
		Driver:   config.DriverMySQL,
		Host:     "db.local",
		Port:     3307,
		Username: "academy",
		Password: "p@ss/w:rd?x=1",
		DBName:   "asd_academy",
	})
	if err != nil {
		t.Fatal(err)
	}

	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q) error = %v", dsn, err)
	}
	if mc.User != "academy" || mc.Passwd != "p@ss/w:rd?x=1" {
		t.Errorf("credentials = %q / %q", mc.User, mc.Passwd)
	}
	if mc.Addr != "db.local:3307" || mc.DBName != "asd_academy" {
		t.Errorf("addr = %q, db = %q", mc.Addr, mc.DBName)
	}
	if !mc.ParseTime || !mc.ClientFoundRows || !mc.MultiStatements {
		t.Errorf("flags parseTime=%v clientFoundRows=%v multiStatements=%v", mc.ParseTime, mc.ClientFoundRows, mc.MultiStatements)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := dbtest.Open(t)
	// Second run must see ErrNoChange and succeed.
	if err := db.Migrate(conn, config.DriverSQLite3, nil); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTx(ctx, conn, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (name, email, password, role) VALUES ('a', 'a@x.io', 'x', 'admin')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := dbtest.Count(t, conn, `SELECT COUNT(*) FROM users`); n != 0 {
		t.Errorf("users = %d after rollback, want 0", n)
	}
}

func TestRunInTx_Commits(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	err := db.RunInTx(ctx, conn, nil, func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (name, email, password, role) VALUES ('a', 'a@x.io', 'x', 'admin')`)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := dbtest.Count(t, conn, `SELECT COUNT(*) FROM users`); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestErrorClassification(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	dbtest.InsertUser(t, conn, "A", "dup@x.io", "admin")

	_, err := conn.ExecContext(ctx, `INSERT INTO users (name, email, password, role) VALUES ('B', 'dup@x.io', 'x', 'admin')`)
	if !db.IsDuplicateKey(err) {
		t.Errorf("IsDuplicateKey(%v) = false", err)
	}
	if db.IsForeignKeyViolation(err) {
		t.Error("duplicate must not classify as FK violation")
	}

	_, err = conn.ExecContext(ctx, `INSERT INTO student_details (user_id, batch_id) VALUES (999, 999)`)
	if !db.IsForeignKeyViolation(err) {
		t.Errorf("IsForeignKeyViolation(%v) = false", err)
	}

	if db.IsDuplicateKey(errors.New("plain")) || db.IsForeignKeyViolation(nil) {
		t.Error("unrelated errors must not classify")
	}
}
