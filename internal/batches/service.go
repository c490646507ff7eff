package batches

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"academy-backend/internal/attendance"
	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/db"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service { return &Service{db: conn, store: NewStore(conn)} }

func normalizeFilter(status string) (string, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", FilterAll:
		return "", nil
	case StatusActive, StatusInactive, StatusArchived:
		return status, nil
	default:
		return "", apperr.Invalid("Invalid status filter.")
	}
}

func normalizeCreate(in CreateBatchRequest) (CreateBatchRequest, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)
	in.CourseProgram = strings.TrimSpace(in.CourseProgram)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
	in.BatchCode = strings.TrimSpace(in.BatchCode)
	in.Status = strings.TrimSpace(in.Status)
	in.ClassroomLocation = strings.TrimSpace(in.ClassroomLocation)
	in.TimingSchedule = strings.TrimSpace(in.TimingSchedule)
	in.Remarks = strings.TrimSpace(in.Remarks)

	if in.Name == "" || in.StartDate == "" || in.EndDate == "" || in.Status == "" {
		return in, apperr.Invalid("Batch Name, Start Date, End Date, and Status are required.")
	}
	if validate.Var(in.Status, "oneof=active inactive archived") != nil {
		return in, apperr.Invalid("Invalid status value.")
	}
	if validate.Var(in.StartDate, "datetime="+dateLayout) != nil || validate.Var(in.EndDate, "datetime="+dateLayout) != nil {
		return in, apperr.Invalid("Start Date and End Date must be in YYYY-MM-DD format.")
	}
	// YYYY-MM-DD orders lexically
	if in.StartDate > in.EndDate {
		return in, apperr.Invalid("Start Date cannot be after End Date.")
	}
	return in, nil
}

func (s *Service) List(ctx context.Context, status string) ([]Batch, error) {
	st, err := normalizeFilter(status)
	if err != nil {
		return nil, err
	}
	res, err := s.store.List(ctx, st)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch batches", err)
	}
	return res, nil
}

// ActiveOptions lists active batches by name for the attendance screen.
func (s *Service) ActiveOptions(ctx context.Context) ([]attendance.BatchOption, error) {
	return s.store.ActiveOptions(ctx)
}

// Create inserts a batch after checking that neither its name nor its code is taken.
// The unique indexes back the pre-check up when two creates race.
func (s *Service) Create(ctx context.Context, in CreateBatchRequest) (*Batch, error) {
	in, err := normalizeCreate(in)
	if err != nil {
		return nil, err
	}

	var created Batch
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		n, err := st.CountClashes(ctx, in.Name, in.BatchCode)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("Batch Name or Batch Code already exists.")
		}
		id, err := st.Create(ctx, in)
		if err != nil {
			return err
		}
		created, err = st.Get(ctx, id)
		return err
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeConflict {
			return nil, err
		}
		if db.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Batch Name or Batch Code already exists.")
		}
		return nil, apperr.Internal("Failed to create batch", err)
	}
	return &created, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Invalid("No valid Batch ID provided for deletion.")
	}
	err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Batch not found or could not be deleted.")
		}
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("Batch still has enrolled students or attendance records.")
		}
		return apperr.Internal("Failed to delete batch", err)
	}
	return nil
}
