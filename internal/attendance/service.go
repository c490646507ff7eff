package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/auth"
	"academy-backend/internal/platform/db"
	"academy-backend/internal/platform/metrics"
)

// BatchLister supplies the active batches offered in the attendance screen.
type BatchLister interface {
	ActiveOptions(ctx context.Context) ([]BatchOption, error)
}

type Service struct {
	db      *sql.DB
	batches BatchLister
}

func NewService(conn *sql.DB, batches BatchLister) *Service {
	return &Service{db: conn, batches: batches}
}

func (s *Service) ActiveBatches(ctx context.Context) ([]BatchOption, error) {
	out, err := s.batches.ActiveOptions(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch batches", err)
	}
	return out, nil
}

// Roster returns every student enrolled in batchID with their attendance for date.
// Students with nothing recorded stay absent with the camera off and no notes.
func (s *Service) Roster(ctx context.Context, batchID int64, date string) ([]StudentAttendance, error) {
	if batchID <= 0 {
		return nil, apperr.Invalid("Batch ID and Date are required")
	}
	date, err := ParseDate(date)
	if err != nil {
		return nil, apperr.Invalid("Batch ID and Date are required")
	}

	var roster []StudentAttendance
	err = db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)

		students, err := st.Roster(ctx, batchID)
		if err != nil {
			return err
		}
		if len(students) == 0 {
			roster = students
			return nil
		}

		marks, err := st.Marks(ctx, batchID, date)
		if err != nil {
			return err
		}

		index := make(map[int64]int, len(students))
		for i, stu := range students {
			index[stu.ID] = i
		}
		// rows for students no longer enrolled are ignored
		for _, m := range marks {
			i, ok := index[m.StudentID]
			if !ok {
				continue
			}
			students[i].IsPresent = m.Status == StatusPresent
			students[i].CameraOn = m.CameraOn
			students[i].Notes = m.Notes.String
		}
		roster = students
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch students", err)
	}
	return roster, nil
}

// Save reconciles every submission against the stored rows in one transaction:
// existing (student, batch, date) rows are updated, missing ones are inserted with
// recorder as recorded_by. Either all submissions apply or none do.
//
// Concurrent saves of the same triple are last-writer-wins. On SQLite write
// transactions are serialized up front. On MySQL an insert that loses the race on the
// unique key updates the winner's row instead of failing.
func (s *Service) Save(ctx context.Context, recorder auth.Principal, subs []Submission) (SaveResult, error) {
	if recorder.IsZero() {
		metrics.AttendanceSaveFailures.WithLabelValues("unauthenticated").Inc()
		return SaveResult{}, apperr.Unauthenticated("Sign in to record attendance")
	}

	records := make([]record, 0, len(subs))
	for i, sub := range subs {
		r, err := sub.normalize()
		if err != nil {
			metrics.AttendanceSaveFailures.WithLabelValues("validation").Inc()
			return SaveResult{}, apperr.Aborted(fmt.Sprintf("record %d: %v", i+1, err))
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return SaveResult{}, nil
	}

	var res SaveResult
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		for i, r := range records {
			inserted, err := reconcile(ctx, st, r, recorder.UserID)
			if err != nil {
				if db.IsForeignKeyViolation(err) {
					return apperr.Aborted(fmt.Sprintf("record %d: unknown student or batch", i+1))
				}
				return err
			}
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeAborted {
			metrics.AttendanceSaveFailures.WithLabelValues("constraint").Inc()
			return SaveResult{}, err
		}
		metrics.AttendanceSaveFailures.WithLabelValues("storage").Inc()
		return SaveResult{}, apperr.Internal("Failed to save attendance", err)
	}

	metrics.AttendanceRecords.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.AttendanceRecords.WithLabelValues("updated").Add(float64(res.Updated))
	return res, nil
}

func reconcile(ctx context.Context, st *Store, r record, recordedBy int64) (inserted bool, err error) {
	id, found, err := st.FindID(ctx, r.StudentID, r.BatchID, r.Date)
	if err != nil {
		return false, err
	}
	if found {
		return false, st.Update(ctx, id, r)
	}
	return insertOrUpdate(ctx, st, r, recordedBy)
}

// insertOrUpdate inserts r. When another writer committed the same key after our
// lookup, the insert hits the unique index and that row is updated in place.
func insertOrUpdate(ctx context.Context, st *Store, r record, recordedBy int64) (inserted bool, err error) {
	err = st.Insert(ctx, r, recordedBy)
	if err == nil {
		return true, nil
	}
	if !db.IsDuplicateKey(err) {
		return false, err
	}
	if err := st.UpdateByKey(ctx, r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("attendance row for student %d vanished after duplicate key", r.StudentID)
		}
		return false, err
	}
	return false, nil
}
