package batches

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/attendance"
	"academy-backend/internal/platform/apperr"
)

const (
	ActionFetch  = "fetch_batches"
	ActionCreate = "create_batch"
	ActionDelete = "delete_batch"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts /batches. writeGuards run in front of POST and DELETE.
func RegisterRoutes(r gin.IRoutes, svc *Service, writeGuards ...gin.HandlerFunc) {
	h := &Handler{svc: svc}
	write := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writeGuards...), fn)
	}
	r.GET("/batches", h.Dispatch)
	r.POST("/batches", write(h.Dispatch)...)
	r.DELETE("/batches", write(h.Dispatch)...)
}

func (h *Handler) Dispatch(c *gin.Context) {
	switch m, action := c.Request.Method, c.Query("action"); {
	case m == http.MethodGet && action == ActionFetch:
		h.List(c)
	case m == http.MethodPost && action == ActionCreate:
		h.Create(c)
	case m == http.MethodDelete && action == ActionDelete:
		h.Delete(c)
	default:
		apperr.Respond(c, apperr.Invalid("Invalid request method or action."))
	}
}

func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "batches": res})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBind(&req); err != nil {
		apperr.Respond(c, apperr.Invalid("Invalid request"))
		return
	}
	b, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Batch '%s' created successfully!", b.Name),
		"batch":   b,
	})
}

type deleteRequest struct {
	BatchID attendance.FlexInt `json:"batch_id"`
}

func (h *Handler) Delete(c *gin.Context) {
	var req deleteRequest
	// body wins; fall back to ?batch_id=
	_ = json.NewDecoder(c.Request.Body).Decode(&req)
	id, ok := req.BatchID.Positive()
	if !ok {
		id, _ = strconv.ParseInt(strings.TrimSpace(c.Query("batch_id")), 10, 64)
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Batch deleted successfully."})
}
