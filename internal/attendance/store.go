package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"academy-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

// Roster lists the students enrolled in batchID, name ascending.
func (s *Store) Roster(ctx context.Context, batchID int64) ([]StudentAttendance, error) {
	const q = `
	SELECT u.id, u.name
	FROM users u
	JOIN student_details sd ON u.id = sd.user_id
	WHERE u.role = 'student' AND sd.batch_id = ?
	ORDER BY u.name ASC, u.id ASC`

	rows, err := s.db.QueryContext(ctx, q, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StudentAttendance{}
	for rows.Next() {
		var r StudentAttendance
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type storedMark struct {
	StudentID int64
	Status    string
	CameraOn  bool
	Notes     sql.NullString
}

// Marks returns the stored attendance rows for a batch on one date.
func (s *Store) Marks(ctx context.Context, batchID int64, date string) ([]storedMark, error) {
	const q = `
	SELECT student_id, status, camera_on, notes
	FROM attendance
	WHERE batch_id = ? AND date = ?`

	rows, err := s.db.QueryContext(ctx, q, batchID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storedMark
	for rows.Next() {
		var m storedMark
		if err := rows.Scan(&m.StudentID, &m.Status, &m.CameraOn, &m.Notes); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindID looks up the row for (student, batch, date). ok is false when none exists.
func (s *Store) FindID(ctx context.Context, studentID, batchID int64, date string) (id int64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM attendance WHERE student_id = ? AND batch_id = ? AND date = ?`,
		studentID, batchID, date,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) Update(ctx context.Context, id int64, r record) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE attendance
	SET status = ?, camera_on = ?, notes = ?, recorded_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		r.Status, r.CameraOn, r.Notes, id)
	return err
}

// UpdateByKey updates the row for r's (student, batch, date) by key rather than id, so
// it reads the latest committed row even inside an older snapshot.
func (s *Store) UpdateByKey(ctx context.Context, r record) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE attendance
	SET status = ?, camera_on = ?, notes = ?, recorded_at = CURRENT_TIMESTAMP
	WHERE student_id = ? AND batch_id = ? AND date = ?`,
		r.Status, r.CameraOn, r.Notes, r.StudentID, r.BatchID, r.Date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, r record, recordedBy int64) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO attendance (student_id, batch_id, date, status, camera_on, recorded_by, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StudentID, r.BatchID, r.Date, r.Status, r.CameraOn, recordedBy, r.Notes)
	return err
}

type ExportFilter struct {
	BatchID int64  // 0 = all batches
	Date    string // "" = all dates
}

type ExportRow struct {
	StudentName string
	StudentID   int64
	BatchName   string
	Date        time.Time
	Status      string
	CameraOn    bool
	Notes       string
}

// Export opens the de-normalised export query. The caller owns rows.
func (s *Store) Export(ctx context.Context, f ExportFilter) (*sql.Rows, error) {
	var (
		sb     strings.Builder
		args   []any
		wheres []string
	)
	sb.WriteString(`
	SELECT u.name, a.student_id, b.name, a.date, a.status, a.camera_on, a.notes
	FROM attendance a
	JOIN users u ON a.student_id = u.id
	JOIN batches b ON a.batch_id = b.id`)

	if f.BatchID > 0 {
		wheres = append(wheres, "a.batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.Date != "" {
		wheres = append(wheres, "a.date = ?")
		args = append(args, f.Date)
	}
	if len(wheres) > 0 {
		sb.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	sb.WriteString(" ORDER BY a.date DESC, u.name ASC, a.id ASC")

	return s.db.QueryContext(ctx, sb.String(), args...)
}

func scanExportRow(rows *sql.Rows) (ExportRow, error) {
	var (
		r     ExportRow
		notes sql.NullString
	)
	if err := rows.Scan(&r.StudentName, &r.StudentID, &r.BatchName, &r.Date, &r.Status, &r.CameraOn, &notes); err != nil {
		return ExportRow{}, err
	}
	r.Notes = notes.String
	return r, nil
}
