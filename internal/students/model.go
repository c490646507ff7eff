package students

import (
	"database/sql"
	"time"
)

const PerPage = 10

type Student struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	BatchID      int64     `json:"batch_id"`
	BatchName    string    `json:"batch_name"`
	ProfilePhoto string    `json:"profile_photo"`
	CreatedAt    time.Time `json:"created_at"`
}

type Page struct {
	Students   []Student `json:"students"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}

// Upload is a photo received with a create or update form.
type Upload struct {
	Filename string
	Data     []byte
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
	BatchID  int64
	Photo    *Upload
}

type UpdateInput struct {
	Name    string
	Email   string
	BatchID int64
	Photo   *Upload
}

type studentRow struct {
	ID           int64
	Name         string
	Email        string
	BatchID      int64
	BatchName    sql.NullString
	ProfilePhoto sql.NullString
	CreatedAt    time.Time
}

func (r studentRow) toModel() Student {
	return Student{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		BatchID:      r.BatchID,
		BatchName:    r.BatchName.String,
		ProfilePhoto: r.ProfilePhoto.String,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}
