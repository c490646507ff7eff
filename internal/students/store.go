package students

import (
	"context"
	"database/sql"
	"errors"

	"academy-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const studentSelect = `
	SELECT u.id, u.name, u.email, sd.batch_id, b.name, sd.profile_photo, u.created_at
	FROM users u
	JOIN student_details sd ON u.id = sd.user_id
	LEFT JOIN batches b ON sd.batch_id = b.id
	WHERE u.role = 'student'`

func scanStudent(sc interface{ Scan(...any) error }) (Student, error) {
	var r studentRow
	if err := sc.Scan(&r.ID, &r.Name, &r.Email, &r.BatchID, &r.BatchName, &r.ProfilePhoto, &r.CreatedAt); err != nil {
		return Student{}, err
	}
	return r.toModel(), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM users u
	JOIN student_details sd ON u.id = sd.user_id
	WHERE u.role = 'student'`).Scan(&n)
	return n, err
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, studentSelect+`
	ORDER BY u.created_at DESC, u.id DESC
	LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Student, 0, limit)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (Student, error) {
	return scanStudent(s.db.QueryRowContext(ctx, studentSelect+` AND u.id = ?`, id))
}

// EmailTaken reports whether a user other than exceptID owns email.
func (s *Store) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? AND id != ? LIMIT 1`, email, exceptID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) InsertUser(ctx context.Context, name, email, hash string) (int64, error) {
	r, err := s.db.ExecContext(ctx, `INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, 'student')`, name, email, hash)
	if err != nil {
		return 0, err
	}
	return r.LastInsertId()
}

func (s *Store) InsertDetails(ctx context.Context, userID, batchID int64, photo string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO student_details (user_id, batch_id, profile_photo) VALUES (?, ?, ?)`,
		userID, batchID, nullable(photo))
	return err
}

// UpdateUser returns sql.ErrNoRows when id is not a student.
func (s *Store) UpdateUser(ctx context.Context, id int64, name, email string) error {
	r, err := s.db.ExecContext(ctx, `UPDATE users SET name = ?, email = ? WHERE id = ? AND role = 'student'`, name, email, id)
	if err != nil {
		return err
	}
	return requireAffected(r)
}

// UpdateDetails keeps the current photo when photo is empty.
func (s *Store) UpdateDetails(ctx context.Context, userID, batchID int64, photo string) error {
	var (
		r   sql.Result
		err error
	)
	if photo != "" {
		r, err = s.db.ExecContext(ctx, `UPDATE student_details SET batch_id = ?, profile_photo = ? WHERE user_id = ?`, batchID, photo, userID)
	} else {
		r, err = s.db.ExecContext(ctx, `UPDATE student_details SET batch_id = ? WHERE user_id = ?`, batchID, userID)
	}
	if err != nil {
		return err
	}
	return requireAffected(r)
}

func (s *Store) DeleteDetails(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM student_details WHERE user_id = ?`, userID)
	return err
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	r, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND role = 'student'`, id)
	if err != nil {
		return err
	}
	return requireAffected(r)
}

func requireAffected(r sql.Result) error {
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
