package attendance

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/metrics"
)

const (
	CSVFilename  = "attendance_export.csv"
	XLSXFilename = "attendance_export.xlsx"
	xlsxSheet    = "Attendance"
)

var exportHeader = []string{"Student Name", "Student ID", "Batch Name", "Date", "Status", "Camera On", "Notes"}

// ExportCursor walks the export query one row at a time.
type ExportCursor struct {
	rows *sql.Rows
	cur  ExportRow
	err  error
	n    int
}

func (c *ExportCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.cur, c.err = scanExportRow(c.rows)
	if c.err != nil {
		return false
	}
	c.n++
	return true
}

func (c *ExportCursor) Row() ExportRow { return c.cur }

func (c *ExportCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Count is the number of rows produced so far.
func (c *ExportCursor) Count() int { return c.n }

func (c *ExportCursor) Close() error { return c.rows.Close() }

// OpenExport runs the export query. Filters are optional and combine with AND.
// Opening before writing anything lets query failures still be reported as JSON.
func (s *Service) OpenExport(ctx context.Context, f ExportFilter) (*ExportCursor, error) {
	if f.BatchID < 0 {
		return nil, apperr.Invalid("Invalid batch ID")
	}
	if f.Date != "" {
		d, err := ParseDate(f.Date)
		if err != nil {
			return nil, apperr.Invalid("Invalid date")
		}
		f.Date = d
	}

	rows, err := NewStore(s.db).Export(ctx, f)
	if err != nil {
		return nil, apperr.Internal("Failed to export attendance", err)
	}
	return &ExportCursor{rows: rows}, nil
}

type CSVOptions struct {
	// Charset is a WHATWG encoding label. Empty means UTF-8.
	Charset string
	// BOM prefixes UTF-8 output with a byte order mark for spreadsheet apps.
	BOM bool
}

// ResolveEncoding maps opts onto an encoder, nil for plain UTF-8. Runes the target
// charset cannot represent are replaced rather than failing the export.
func (o CSVOptions) ResolveEncoding() (*encoding.Encoder, error) {
	label := strings.TrimSpace(o.Charset)
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q", o.Charset)
	}
	if enc == unicode.UTF8 {
		if o.BOM {
			return unicode.UTF8BOM.NewEncoder(), nil
		}
		return nil, nil
	}
	return encoding.ReplaceUnsupported(enc.NewEncoder()), nil
}

// WriteCSV streams cur as CSV. enc may be nil for plain UTF-8.
func WriteCSV(w io.Writer, cur *ExportCursor, enc *encoding.Encoder) (err error) {
	if enc != nil {
		tw := transform.NewWriter(w, enc)
		defer func() {
			if cerr := tw.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}()
		w = tw
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for cur.Next() {
		r := cur.Row()
		if err := cw.Write([]string{
			r.StudentName,
			strconv.FormatInt(r.StudentID, 10),
			r.BatchName,
			r.Date.Format(DateLayout),
			r.Status,
			cameraLabel(r.CameraOn),
			r.Notes,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if err := cur.Err(); err != nil {
		return err
	}
	metrics.ExportRows.WithLabelValues("csv").Add(float64(cur.Count()))
	return nil
}

// WriteXLSX streams cur into a single-sheet workbook.
func WriteXLSX(w io.Writer, cur *ExportCursor) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	for col, width := range []float64{28, 12, 24, 12, 10, 11, 40} {
		if err := sw.SetColWidth(col+1, col+1, width); err != nil {
			return err
		}
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := 2
	for cur.Next() {
		r := cur.Row()
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := sw.SetRow(cell, []any{
			r.StudentName,
			r.StudentID,
			r.BatchName,
			r.Date.Format(DateLayout),
			r.Status,
			cameraLabel(r.CameraOn),
			r.Notes,
		}); err != nil {
			return err
		}
		row++
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return err
	}
	metrics.ExportRows.WithLabelValues("xlsx").Add(float64(cur.Count()))
	return nil
}

func cameraLabel(on bool) string {
	if on {
		return "On"
	}
	return "Off"
}
