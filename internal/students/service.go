package students

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/auth"
	"academy-backend/internal/platform/db"
	"academy-backend/internal/platform/photostore"
)

const minPasswordLen = 6

var (
	validate = validator.New()

	// extension comes from the sniffed type, never from the client's filename
	photoTypes = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/webp": "webp",
	}
)

type Service struct {
	db       *sql.DB
	store    *Store
	photos   photostore.Store
	maxPhoto int64
}

func NewService(conn *sql.DB, photos photostore.Store, maxPhotoBytes int64) *Service {
	return &Service{db: conn, store: NewStore(conn), photos: photos, maxPhoto: maxPhotoBytes}
}

func (s *Service) List(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return Page{}, apperr.Internal("Failed to fetch students", err)
	}
	list, err := s.store.List(ctx, PerPage, (page-1)*PerPage)
	if err != nil {
		return Page{}, apperr.Internal("Failed to fetch students", err)
	}
	return Page{
		Students:   list,
		Page:       page,
		PerPage:    PerPage,
		Total:      total,
		TotalPages: (total + PerPage - 1) / PerPage,
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	if id <= 0 {
		return Student{}, apperr.Invalid("User ID is missing or invalid.")
	}
	st, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, apperr.NotFound("Student not found.")
		}
		return Student{}, apperr.Internal("Failed to fetch student", err)
	}
	return st, nil
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// storePhoto checks size and sniffed type, then hands the bytes to the photo store.
func (s *Service) storePhoto(u *Upload) (string, error) {
	if u == nil || len(u.Data) == 0 {
		return "", nil
	}
	if s.maxPhoto > 0 && int64(len(u.Data)) > s.maxPhoto {
		return "", tooLarge(s.maxPhoto)
	}
	mt := mimetype.Detect(u.Data)
	ext, ok := photoTypes[mt.String()]
	if !ok {
		return "", apperr.Invalid("Invalid file type. Only JPG, PNG, and WebP allowed.")
	}
	ref, err := s.photos.Put(u.Data, ext)
	if err != nil {
		return "", apperr.Internal("File upload failed.", err)
	}
	return ref, nil
}

func tooLarge(limit int64) error {
	size := fmt.Sprintf("%dMB", limit>>20)
	if limit%(1<<20) != 0 {
		size = fmt.Sprintf("%dKB", limit>>10)
	}
	return apperr.Invalid("File too large. Max size: " + size + ".")
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.BatchID <= 0 {
		return Student{}, apperr.Invalid("Please fill all fields.")
	}
	if !validEmail(in.Email) {
		return Student{}, apperr.Invalid("Invalid email format.")
	}
	if len(in.Password) < minPasswordLen {
		return Student{}, apperr.Invalid(fmt.Sprintf("Password must be at least %d characters.", minPasswordLen))
	}

	// photo files are content-addressed, so one left behind by a rolled back create
	// is simply reused by the next identical upload
	photo, err := s.storePhoto(in.Photo)
	if err != nil {
		return Student{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Student{}, apperr.Internal("Failed to create student", err)
	}

	var created Student
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		taken, err := st.EmailTaken(ctx, in.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("Email already exists!")
		}
		id, err := st.InsertUser(ctx, in.Name, in.Email, hash)
		if err != nil {
			return err
		}
		if err := st.InsertDetails(ctx, id, in.BatchID, photo); err != nil {
			return err
		}
		created, err = st.Get(ctx, id)
		return err
	})
	if err != nil {
		return Student{}, classifyWrite(err, "Failed to create student")
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case id <= 0:
		return Student{}, apperr.Invalid("User ID is missing or invalid.")
	case in.Name == "":
		return Student{}, apperr.Invalid("Name cannot be empty.")
	case in.Email == "":
		return Student{}, apperr.Invalid("Email cannot be empty.")
	case !validEmail(in.Email):
		return Student{}, apperr.Invalid("Invalid email format.")
	case in.BatchID <= 0:
		return Student{}, apperr.Invalid("Batch ID is missing or invalid.")
	}

	photo, err := s.storePhoto(in.Photo)
	if err != nil {
		return Student{}, err
	}

	var updated Student
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		taken, err := st.EmailTaken(ctx, in.Email, id)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("Email already exists for another user!")
		}
		if err := st.UpdateUser(ctx, id, in.Name, in.Email); err != nil {
			return err
		}
		if err := st.UpdateDetails(ctx, id, in.BatchID, photo); err != nil {
			return err
		}
		updated, err = st.Get(ctx, id)
		return err
	})
	if err != nil {
		return Student{}, classifyWrite(err, "Failed to update student")
	}
	return updated, nil
}

// Delete removes the student's details and then the user row in one transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Invalid("No valid user ID provided.")
	}
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		if err := st.DeleteDetails(ctx, id); err != nil {
			return err
		}
		return st.DeleteUser(ctx, id)
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("Student has attendance records and cannot be deleted.")
		}
		return classifyWrite(err, "Failed to delete student")
	}
	return nil
}

func classifyWrite(err error, msg string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("Student not found.")
	case db.IsDuplicateKey(err):
		return apperr.Conflict("Email already exists!")
	case db.IsForeignKeyViolation(err):
		return apperr.Invalid("Selected batch does not exist.")
	default:
		return apperr.Internal(msg, err)
	}
}
