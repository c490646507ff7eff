package batches

import (
	"context"
	"testing"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/db/dbtest"
)

func validRequest(name, code string) CreateBatchRequest {
	return CreateBatchRequest{
		Name:         name,
		AcademicYear: "2025-26",
		StartDate:    "2025-04-01",
		EndDate:      "2025-09-30",
		BatchCode:    code,
		Status:       StatusActive,
	}
}

func TestCreate(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	ctx := context.Background()

	b, err := svc.Create(ctx, validRequest("  Morning Cohort ", "MC-01"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.ID == 0 || b.Name != "Morning Cohort" || b.StartDate != "2025-04-01" || b.BatchCode == nil || *b.BatchCode != "MC-01" {
		t.Errorf("batch = %+v", b)
	}

	noCode, err := svc.Create(ctx, validRequest("Evening Cohort", ""))
	if err != nil {
		t.Fatal(err)
	}
	if noCode.BatchCode != nil {
		t.Errorf("empty code stored as %q, want NULL", *noCode.BatchCode)
	}
	// several batches without a code must coexist
	if _, err := svc.Create(ctx, validRequest("Weekend Cohort", "")); err != nil {
		t.Errorf("second code-less batch rejected: %v", err)
	}
}

func TestCreate_Rejects(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	ctx := context.Background()
	if _, err := svc.Create(ctx, validRequest("Existing", "EX-1")); err != nil {
		t.Fatal(err)
	}

	mutate := func(fn func(*CreateBatchRequest)) CreateBatchRequest {
		r := validRequest("Fresh", "FR-1")
		fn(&r)
		return r
	}
	tests := []struct {
		name string
		req  CreateBatchRequest
		code apperr.Code
		msg  string
	}{
		{"missing name", mutate(func(r *CreateBatchRequest) { r.Name = "  " }), apperr.CodeInvalidArgument, "Batch Name, Start Date, End Date, and Status are required."},
		{"missing status", mutate(func(r *CreateBatchRequest) { r.Status = "" }), apperr.CodeInvalidArgument, "Batch Name, Start Date, End Date, and Status are required."},
		{"bad status", mutate(func(r *CreateBatchRequest) { r.Status = "paused" }), apperr.CodeInvalidArgument, "Invalid status value."},
		{"bad date", mutate(func(r *CreateBatchRequest) { r.EndDate = "30/09/2025" }), apperr.CodeInvalidArgument, ""},
		{"start after end", mutate(func(r *CreateBatchRequest) { r.StartDate = "2025-10-01" }), apperr.CodeInvalidArgument, "Start Date cannot be after End Date."},
		{"duplicate name", mutate(func(r *CreateBatchRequest) { r.Name = "Existing" }), apperr.CodeConflict, "Batch Name or Batch Code already exists."},
		{"duplicate code", mutate(func(r *CreateBatchRequest) { r.BatchCode = "EX-1" }), apperr.CodeConflict, "Batch Name or Batch Code already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			if apperr.CodeOf(err) != tt.code {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if tt.msg != "" && apperr.Message(err) != tt.msg {
				t.Errorf("message = %q, want %q", apperr.Message(err), tt.msg)
			}
		})
	}

	list, _ := svc.List(ctx, FilterAll)
	if len(list) != 1 {
		t.Errorf("batches = %d, rejected creates must not persist", len(list))
	}
}

func TestCreate_SameDayRangeAllowed(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	r := validRequest("One Day", "")
	r.EndDate = r.StartDate
	if _, err := svc.Create(context.Background(), r); err != nil {
		t.Errorf("start == end rejected: %v", err)
	}
}

func TestList(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(conn)
	ctx := context.Background()
	dbtest.InsertBatch(t, conn, "A", StatusActive)
	dbtest.InsertBatch(t, conn, "B", StatusArchived)
	last := dbtest.InsertBatch(t, conn, "C", StatusActive)

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != last {
		t.Errorf("all = %+v, want newest first", all)
	}

	active, _ := svc.List(ctx, "active")
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}
	archived, _ := svc.List(ctx, "ARCHIVED")
	if len(archived) != 1 || archived[0].Name != "B" {
		t.Errorf("archived = %+v", archived)
	}

	if _, err := svc.List(ctx, "deleted"); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Errorf("unknown status err = %v", err)
	}
}

func TestActiveOptions(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(conn)
	dbtest.InsertBatch(t, conn, "Zeta", StatusActive)
	dbtest.InsertBatch(t, conn, "Alpha", StatusActive)
	dbtest.InsertBatch(t, conn, "Old", StatusInactive)

	opts, err := svc.ActiveOptions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 || opts[0].Name != "Alpha" || opts[1].Name != "Zeta" {
		t.Errorf("options = %+v", opts)
	}
}

func TestDelete(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(conn)
	ctx := context.Background()
	empty := dbtest.InsertBatch(t, conn, "Empty", StatusActive)
	busy := dbtest.InsertBatch(t, conn, "Busy", StatusActive)
	dbtest.Enroll(t, conn, busy, "Stu", "stu@academy.io")

	if err := svc.Delete(ctx, empty); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, empty); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("second delete err = %v, want NOT_FOUND", err)
	}
	if err := svc.Delete(ctx, busy); apperr.CodeOf(err) != apperr.CodeConflict {
		t.Errorf("referenced delete err = %v, want CONFLICT", err)
	}
	if err := svc.Delete(ctx, 0); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Errorf("zero id err = %v", err)
	}
}
