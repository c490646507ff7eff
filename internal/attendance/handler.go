package attendance

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academy-backend/internal/platform/apperr"
	"academy-backend/internal/platform/auth"
	"academy-backend/internal/platform/logging"
	"academy-backend/internal/platform/metrics"
)

const (
	ActionFetchBatches  = "fetch_batches"
	ActionFetchStudents = "fetch_students_and_attendance"
	ActionSave          = "save_attendance"
	ActionExportCSV     = "export_attendance_csv"
	ActionExportXLSX    = "export_attendance_xlsx"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the ?action= adapter on /attendance. writeGuards run in
// front of POST only.
func RegisterRoutes(r gin.IRoutes, svc *Service, writeGuards ...gin.HandlerFunc) {
	h := &Handler{svc: svc}
	r.GET("/attendance", h.Dispatch)
	post := append(append([]gin.HandlerFunc{}, writeGuards...), h.Dispatch)
	r.POST("/attendance", post...)
}

func (h *Handler) Dispatch(c *gin.Context) {
	action := strings.TrimSpace(c.Query("action"))
	switch action {
	case "":
		apperr.Respond(c, apperr.Invalid("No action specified"))
	case ActionFetchBatches:
		h.FetchBatches(c)
	case ActionFetchStudents:
		h.FetchStudents(c)
	case ActionSave:
		if c.Request.Method != http.MethodPost {
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"success": false, "message": "save_attendance requires POST"})
			return
		}
		h.Save(c)
	case ActionExportCSV:
		h.ExportCSV(c)
	case ActionExportXLSX:
		h.ExportXLSX(c)
	default:
		apperr.Respond(c, apperr.Invalid("Invalid action"))
	}
}

func (h *Handler) FetchBatches(c *gin.Context) {
	batches, err := h.svc.ActiveBatches(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "batches": batches})
}

func (h *Handler) FetchStudents(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Query("batch_id"), 10, 64)
	if err != nil {
		apperr.Respond(c, apperr.Invalid("Batch ID and Date are required"))
		return
	}
	students, err := h.svc.Roster(c.Request.Context(), batchID, c.Query("date"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students})
}

func (h *Handler) Save(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		apperr.Respond(c, apperr.Invalid("Invalid data format"))
		return
	}
	subs, err := DecodeSubmissions(body)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeAborted {
			metrics.AttendanceSaveFailures.WithLabelValues("validation").Inc()
		}
		apperr.Respond(c, err)
		return
	}

	p, _ := auth.PrincipalFrom(c)
	res, err := h.svc.Save(c.Request.Context(), p, subs)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	logging.From(c).Info("attendance saved",
		zap.Int64("recorded_by", p.UserID),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated))
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Attendance saved",
		"inserted": res.Inserted,
		"updated":  res.Updated,
	})
}

func exportFilter(c *gin.Context) (ExportFilter, error) {
	var f ExportFilter
	if raw := strings.TrimSpace(c.Query("batch_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, apperr.Invalid("Invalid batch ID")
		}
		f.BatchID = id
	}
	f.Date = strings.TrimSpace(c.Query("date"))
	return f, nil
}

func (h *Handler) ExportCSV(c *gin.Context) {
	f, err := exportFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	opts := CSVOptions{Charset: c.Query("charset"), BOM: c.Query("bom") == "1"}
	enc, err := opts.ResolveEncoding()
	if err != nil {
		apperr.Respond(c, apperr.Invalid(err.Error()))
		return
	}

	cur, err := h.svc.OpenExport(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer cur.Close()

	charset := "utf-8"
	if opts.Charset != "" {
		charset = strings.ToLower(strings.TrimSpace(opts.Charset))
	}
	c.Header("Content-Type", "text/csv; charset="+charset)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, CSVFilename))
	c.Status(http.StatusOK)

	// headers are gone by now, so a failure can only be logged
	if err := WriteCSV(c.Writer, cur, enc); err != nil {
		logging.From(c).Error("csv export interrupted", zap.Int("rows", cur.Count()), zap.Error(err))
		_ = c.Error(err)
	}
}

func (h *Handler) ExportXLSX(c *gin.Context) {
	f, err := exportFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	cur, err := h.svc.OpenExport(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer cur.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, XLSXFilename))
	c.Status(http.StatusOK)

	if err := WriteXLSX(c.Writer, cur); err != nil {
		logging.From(c).Error("xlsx export interrupted", zap.Int("rows", cur.Count()), zap.Error(err))
		_ = c.Error(err)
	}
}
