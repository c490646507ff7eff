package batches

import (
	"database/sql"
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"

	FilterAll = "all"
)

type CreateBatchRequest struct {
	Name              string `form:"name" json:"name"`
	AcademicYear      string `form:"academic_year" json:"academic_year"`
	CourseProgram     string `form:"course_program" json:"course_program"`
	StartDate         string `form:"start_date" json:"start_date"`
	EndDate           string `form:"end_date" json:"end_date"`
	BatchCode         string `form:"batch_code" json:"batch_code"`
	Status            string `form:"status" json:"status"`
	ClassroomLocation string `form:"classroom_location" json:"classroom_location"`
	TimingSchedule    string `form:"timing_schedule" json:"timing_schedule"`
	Remarks           string `form:"remarks" json:"remarks"`
}

type Batch struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	AcademicYear      string    `json:"academic_year"`
	CourseProgram     string    `json:"course_program"`
	StartDate         string    `json:"start_date"`
	EndDate           string    `json:"end_date"`
	BatchCode         *string   `json:"batch_code"`
	Status            string    `json:"status"`
	ClassroomLocation string    `json:"classroom_location"`
	TimingSchedule    string    `json:"timing_schedule"`
	Remarks           string    `json:"remarks"`
	CreatedAt         time.Time `json:"created_at"`
}

// batchRow mirrors the table for scanning.
type batchRow struct {
	ID                int64
	Name              string
	AcademicYear      string
	CourseProgram     string
	StartDate         time.Time
	EndDate           time.Time
	BatchCode         sql.NullString
	Status            string
	ClassroomLocation string
	TimingSchedule    string
	Remarks           sql.NullString
	CreatedAt         time.Time
}

func (r batchRow) toModel() Batch {
	b := Batch{
		ID:                r.ID,
		Name:              r.Name,
		AcademicYear:      r.AcademicYear,
		CourseProgram:     r.CourseProgram,
		StartDate:         r.StartDate.Format(dateLayout),
		EndDate:           r.EndDate.Format(dateLayout),
		Status:            r.Status,
		ClassroomLocation: r.ClassroomLocation,
		TimingSchedule:    r.TimingSchedule,
		Remarks:           r.Remarks.String,
		CreatedAt:         r.CreatedAt.UTC(),
	}
	if r.BatchCode.Valid {
		code := r.BatchCode.String
		b.BatchCode = &code
	}
	return b
}
