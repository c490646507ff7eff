// Command create-admin bootstraps a staff account so the portal can be logged into.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"academy-backend/internal/platform/auth"
	"academy-backend/internal/platform/config"
	"academy-backend/internal/platform/db"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	name := flag.String("name", "Admin", "display name")
	email := flag.String("email", "", "login email (required)")
	password := flag.String("password", "", "initial password, at least 6 characters (required)")
	role := flag.String("role", auth.RoleAdmin, "admin or teacher")
	flag.Parse()

	if err := run(*cfgPath, *name, *email, *password, *role); err != nil {
		flag.Usage()
		log.Fatal(err)
	}
}

func run(cfgPath, name, email, password, role string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 6 {
		return errors.New("email and a password of at least 6 characters are required")
	}
	if role != auth.RoleAdmin && role != auth.RoleTeacher {
		return fmt.Errorf("role must be %q or %q", auth.RoleAdmin, auth.RoleTeacher)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.DB.Driver, nil); err != nil {
		return err
	}

	created, err := createUser(context.Background(), conn, name, email, password, role)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintln(os.Stderr, "user already exists:", email)
		return nil
	}
	fmt.Printf("%s user created: %s\n", role, email)
	return nil
}

// createUser reports false without touching anything when email is already registered.
func createUser(ctx context.Context, conn *sql.DB, name, email, password, role string) (bool, error) {
	var id int64
	err := conn.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("query users: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)`,
		name, email, hash, role); err != nil {
		if db.IsDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert user: %w", err)
	}
	return true, nil
}
