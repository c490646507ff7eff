package batches

import (
	"context"
	"database/sql"

	"academy-backend/internal/attendance"
	"academy-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const batchColumns = `id, name, academic_year, course_program, start_date, end_date,
	batch_code, status, classroom_location, timing_schedule, remarks, created_at`

func scanBatch(sc interface{ Scan(...any) error }) (Batch, error) {
	var r batchRow
	err := sc.Scan(&r.ID, &r.Name, &r.AcademicYear, &r.CourseProgram, &r.StartDate, &r.EndDate,
		&r.BatchCode, &r.Status, &r.ClassroomLocation, &r.TimingSchedule, &r.Remarks, &r.CreatedAt)
	if err != nil {
		return Batch{}, err
	}
	return r.toModel(), nil
}

// List returns batches newest first. An empty status returns every batch.
func (s *Store) List(ctx context.Context, status string) ([]Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM batches`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Batch, 0, 16)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Batch, error) {
	return scanBatch(s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id))
}

func (s *Store) ActiveOptions(ctx context.Context) ([]attendance.BatchOption, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM batches WHERE status = 'active' ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []attendance.BatchOption{}
	for rows.Next() {
		var o attendance.BatchOption
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// CountClashes counts batches sharing name, or code when code is non-empty.
func (s *Store) CountClashes(ctx context.Context, name, code string) (int, error) {
	q := `SELECT COUNT(*) FROM batches WHERE name = ?`
	args := []any{name}
	if code != "" {
		q += ` OR batch_code = ?`
		args = append(args, code)
	}
	var n int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

func (s *Store) Create(ctx context.Context, in CreateBatchRequest) (int64, error) {
	var code any
	if in.BatchCode != "" {
		code = in.BatchCode
	}
	r, err := s.db.ExecContext(ctx, `
	INSERT INTO batches (name, academic_year, course_program, start_date, end_date,
		batch_code, status, classroom_location, timing_schedule, remarks)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.AcademicYear, in.CourseProgram, in.StartDate, in.EndDate,
		code, in.Status, in.ClassroomLocation, in.TimingSchedule, in.Remarks)
	if err != nil {
		return 0, err
	}
	return r.LastInsertId()
}

// Delete returns sql.ErrNoRows when nothing was removed.
func (s *Store) Delete(ctx context.Context, id int64) error {
	r, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	aff, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}
