package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/db/dbtest"
)

func seedExport(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	day2 := f.sub(f.s1, false, false, "sick")
	day2.Date = "2025-03-02"
	if _, err := f.svc.Save(ctx, f.teacher, []Submission{
		f.sub(f.s1, true, true, "late, again"),
		f.sub(f.s2, true, false, ""),
		day2,
	}); err != nil {
		t.Fatal(err)
	}
}

func exportCSV(t *testing.T, svc *Service, filter ExportFilter, opts CSVOptions) []byte {
	t.Helper()
	enc, err := opts.ResolveEncoding()
	if err != nil {
		t.Fatal(err)
	}
	cur, err := svc.OpenExport(context.Background(), filter)
	if err != nil {
		t.Fatal(err)
	}
	defer cur.Close()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, cur, enc); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExportCSV_AllRows(t *testing.T) {
	f := newFixture(t)
	seedExport(t, f)

	records, err := csv.NewReader(bytes.NewReader(exportCSV(t, f.svc, ExportFilter{}, CSVOptions{}))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(records[0], ","); got != "Student Name,Student ID,Batch Name,Date,Status,Camera On,Notes" {
		t.Errorf("header = %q", got)
	}
	if len(records)-1 != dbtest.Count(t, f.db, `SELECT COUNT(*) FROM attendance`) {
		t.Fatalf("exported %d rows, want one per attendance row", len(records)-1)
	}

	// date desc, then name asc
	want := [][]string{
		{"Adam", "2025-03-02", "absent", "Off", "sick"},
		{"Adam", "2025-03-01", "present", "On", "late, again"},
		{"Zoe", "2025-03-01", "present", "Off", ""},
	}
	for i, w := range want {
		r := records[i+1]
		got := []string{r[0], r[3], r[4], r[5], r[6]}
		if strings.Join(got, "|") != strings.Join(w, "|") {
			t.Errorf("row %d = %v, want %v", i+1, got, w)
		}
		if r[2] != "B1" {
			t.Errorf("row %d batch = %q", i+1, r[2])
		}
	}
}

func TestExportCSV_Filters(t *testing.T) {
	f := newFixture(t)
	seedExport(t, f)

	tests := []struct {
		name   string
		filter ExportFilter
		want   int
	}{
		{"by date", ExportFilter{Date: day}, 2},
		{"by batch", ExportFilter{BatchID: f.b1}, 3},
		{"by batch and date", ExportFilter{BatchID: f.b1, Date: "2025-03-02"}, 1},
		{"no match", ExportFilter{Date: "2024-01-01"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := csv.NewReader(bytes.NewReader(exportCSV(t, f.svc, tt.filter, CSVOptions{}))).ReadAll()
			if err != nil {
				t.Fatal(err)
			}
			if len(records)-1 != tt.want {
				t.Errorf("rows = %d, want %d", len(records)-1, tt.want)
			}
			for _, r := range records[1:] {
				if r[5] != "On" && r[5] != "Off" {
					t.Errorf("camera rendered as %q", r[5])
				}
			}
		})
	}
}

func TestExportCSV_BOMAndCharset(t *testing.T) {
	f := newFixture(t)
	seedExport(t, f)

	out := exportCSV(t, f.svc, ExportFilter{}, CSVOptions{BOM: true})
	if !bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("missing UTF-8 BOM")
	}

	if _, err := f.svc.Save(context.Background(), f.teacher, []Submission{{
		StudentID: NewFlexInt(f.s1), ClassID: NewFlexInt(f.b1), Date: "2025-03-03", Notes: "café ✓",
	}}); err != nil {
		t.Fatal(err)
	}
	latin := exportCSV(t, f.svc, ExportFilter{Date: "2025-03-03"}, CSVOptions{Charset: "latin1"})
	if !bytes.Contains(latin, []byte("caf\xe9")) {
		t.Errorf("é not transcoded to windows-1252: %q", latin)
	}
	if bytes.Contains(latin, []byte("✓")) {
		t.Error("unrepresentable rune passed through untranscoded")
	}

	if _, err := (CSVOptions{Charset: "klingon"}).ResolveEncoding(); err == nil {
		t.Error("unknown charset accepted")
	}
}

func TestWriteCSV_CursorFailureStillFlushesEncoder(t *testing.T) {
	boom := errors.New("connection reset")
	enc, err := (CSVOptions{BOM: true}).ResolveEncoding()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = WriteCSV(&buf, &ExportCursor{err: boom}, enc)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want cursor error", err)
	}
	want := "\xef\xbb\xbfStudent Name,Student ID,Batch Name,Date,Status,Camera On,Notes\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestOpenExport_InvalidFilter(t *testing.T) {
	f := newFixture(t)
	for _, flt := range []ExportFilter{{BatchID: -1}, {Date: "03/01/2025"}} {
		if _, err := f.svc.OpenExport(context.Background(), flt); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
			t.Errorf("OpenExport(%+v) err = %v", flt, err)
		}
	}
}

func TestExportXLSX(t *testing.T) {
	f := newFixture(t)
	seedExport(t, f)

	cur, err := f.svc.OpenExport(context.Background(), ExportFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = WriteXLSX(&buf, cur)
	cur.Close()
	if err != nil {
		t.Fatal(err)
	}

	wb, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	rows, err := wb.GetRows(xlsxSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("sheet rows = %d, want header + 3", len(rows))
	}
	if rows[0][5] != "Camera On" || rows[2][5] != "On" {
		t.Errorf("rows = %v", rows)
	}
}
